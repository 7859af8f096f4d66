package checkout

import (
	"github.com/makolahq/makola-backend/pkg/db/models"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
)

// validateItems runs the pre-transaction cart checks against the freshly
// loaded product rows, not the price captured at add time. The stock check
// here is advisory: the authoritative check is the conditional decrement
// inside the order transaction.
func validateItems(items []models.CartItem) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	for _, item := range items {
		if item.Product == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "cart item missing product").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		if !item.Product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").
				WithDetails(map[string]any{
					"product_id":   item.Product.ID.String(),
					"product_name": item.Product.Name,
				})
		}
		if item.Product.TrackInventory && !item.Product.AllowBackorder &&
			item.Product.StockQuantity < item.Quantity {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{
					"product_id":   item.Product.ID.String(),
					"product_name": item.Product.Name,
					"requested":    item.Quantity,
					"available":    item.Product.StockQuantity,
				})
		}
	}
	return nil
}
