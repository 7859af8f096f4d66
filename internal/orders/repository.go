package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	"github.com/makolahq/makola-backend/pkg/pagination"
)

// Repository defines persistence for committed orders and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	FindSellerOrder(ctx context.Context, id uuid.UUID) (*models.SellerOrder, error)
	FindOrderItemsBySellerOrder(ctx context.Context, sellerOrderID uuid.UUID) ([]models.OrderItem, error)
	FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	UpdateSellerOrderStatus(ctx context.Context, id uuid.UUID, status enums.SellerOrderStatus) error
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Preload("SellerOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("seller_orders.created_at ASC")
		}).
		Preload("SellerOrders.Items").
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Normalize().Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) FindSellerOrder(ctx context.Context, id uuid.UUID) (*models.SellerOrder, error) {
	var so models.SellerOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&so).Error
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *repository) FindOrderItemsBySellerOrder(ctx context.Context, sellerOrderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("seller_order_id = ?", sellerOrderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

func (r *repository) UpdateSellerOrderStatus(ctx context.Context, id uuid.UUID, status enums.SellerOrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerOrder{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
