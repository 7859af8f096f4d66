package enums

// InventoryChangeType labels entries in the inventory audit trail.
type InventoryChangeType string

const (
	InventoryChangeSale       InventoryChangeType = "sale"
	InventoryChangeRestock    InventoryChangeType = "restock"
	InventoryChangeAdjustment InventoryChangeType = "adjustment"
)

func (t InventoryChangeType) IsValid() bool {
	switch t {
	case InventoryChangeSale, InventoryChangeRestock, InventoryChangeAdjustment:
		return true
	}
	return false
}
