package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
)

// SaleRequest is one stock deduction inside an order transaction.
type SaleRequest struct {
	Product  *models.Product
	Quantity int
	OrderID  uuid.UUID
}

// RecordSale decrements the product's stock and appends an audit entry. The
// sufficiency check and the decrement are a single conditional UPDATE so two
// concurrent checkouts cannot both take the last unit. Products that do not
// track inventory are left untouched.
func RecordSale(ctx context.Context, tx *gorm.DB, req SaleRequest) error {
	if tx == nil {
		return fmt.Errorf("transaction handle required")
	}
	if req.Product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product required")
	}
	if req.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be positive").
			WithDetails(map[string]any{"product_id": req.Product.ID.String()})
	}

	if !req.Product.TrackInventory {
		return nil
	}

	query := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", req.Product.ID)
	if !req.Product.AllowBackorder {
		query = query.Where("stock_quantity >= ?", req.Quantity)
	}

	res := query.UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", req.Quantity))
	if res.Error != nil {
		return fmt.Errorf("decrementing stock for product %s: %w", req.Product.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{
				"product_id":   req.Product.ID.String(),
				"product_name": req.Product.Name,
				"requested":    req.Quantity,
			})
	}

	var updated models.Product
	if err := tx.WithContext(ctx).Select("stock_quantity").First(&updated, "id = ?", req.Product.ID).Error; err != nil {
		return fmt.Errorf("reloading stock for product %s: %w", req.Product.ID, err)
	}

	orderID := req.OrderID
	entry := models.InventoryLogEntry{
		ProductID:        req.Product.ID,
		Change:           -req.Quantity,
		PreviousQuantity: updated.StockQuantity + req.Quantity,
		NewQuantity:      updated.StockQuantity,
		Type:             enums.InventoryChangeSale,
		OrderID:          &orderID,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("appending inventory log for product %s: %w", req.Product.ID, err)
	}
	return nil
}

// RecordRestock adds stock back, e.g. when a seller order is cancelled before
// shipment, and appends the matching audit entry.
func RecordRestock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int, orderID *uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction handle required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return fmt.Errorf("loading product %s: %w", productID, err)
	}
	if !product.TrackInventory {
		return nil
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("incrementing stock for product %s: %w", productID, res.Error)
	}

	var updated models.Product
	if err := tx.WithContext(ctx).Select("stock_quantity").First(&updated, "id = ?", productID).Error; err != nil {
		return fmt.Errorf("reloading stock for product %s: %w", productID, err)
	}

	entry := models.InventoryLogEntry{
		ProductID:        productID,
		Change:           quantity,
		PreviousQuantity: updated.StockQuantity - quantity,
		NewQuantity:      updated.StockQuantity,
		Type:             enums.InventoryChangeRestock,
		OrderID:          orderID,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("appending inventory log for product %s: %w", productID, err)
	}
	return nil
}
