package enums

// ActorRole identifies who a token was minted for.
type ActorRole string

const (
	RoleBuyer  ActorRole = "buyer"
	RoleSeller ActorRole = "seller"
	RoleAdmin  ActorRole = "admin"
)

func (r ActorRole) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}
