package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/pkg/db/models"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the buyer-facing cart operations: a read used by checkout
// and the add/update/remove mutations.
type Service interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, buyerID uuid.UUID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, buyerID uuid.UUID, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, buyerID uuid.UUID, productID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo     Repository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

// Get loads the buyer's cart with live product state joined onto each line.
// A buyer who never added anything gets an empty cart, not an error.
func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{BuyerID: buyerID, Items: []models.CartItem{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.FindOrCreateByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{
			ID:                uuid.New(),
			CartID:            cart.ID,
			ProductID:         productID,
			Quantity:          quantity,
			PriceAtAddPesewas: product.PricePesewas,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	return s.Get(ctx, buyerID)
}

// UpdateItem sets the line quantity outright; zero removes the line.
func (s *service) UpdateItem(ctx context.Context, buyerID uuid.UUID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, buyerID, productID)
	}

	if _, err := s.loadSellableProduct(ctx, productID); err != nil {
		return nil, err
	}

	item, err := s.findLine(ctx, buyerID, productID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) RemoveItem(ctx context.Context, buyerID uuid.UUID, productID uuid.UUID) (*models.Cart, error) {
	item, err := s.findLine(ctx, buyerID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").
			WithDetails(map[string]any{"product_id": productID.String(), "product_name": product.Name})
	}
	return product, nil
}

func (s *service) findLine(ctx context.Context, buyerID, productID uuid.UUID) (*models.CartItem, error) {
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}
	return item, nil
}
