package sellers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/pkg/db/models"
)

// Repository exposes read-only seller lookups for checkout partitioning.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a seller repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sellers []models.Seller
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&sellers).Error
	if err != nil {
		return nil, err
	}
	return sellers, nil
}

// CommissionRate resolves the effective commission rate for a seller,
// falling back to the platform default when the seller has no override.
func CommissionRate(seller *models.Seller, platformDefault decimal.Decimal) decimal.Decimal {
	if seller == nil || seller.CommissionRate == nil {
		return platformDefault
	}
	return *seller.CommissionRate
}
