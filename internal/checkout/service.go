package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/internal/cart"
	"github.com/makolahq/makola-backend/internal/coupons"
	"github.com/makolahq/makola-backend/internal/inventory"
	"github.com/makolahq/makola-backend/internal/pricing"
	"github.com/makolahq/makola-backend/internal/sellers"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/db"
	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/metrics"
	"github.com/makolahq/makola-backend/pkg/outbox"
	"github.com/makolahq/makola-backend/pkg/outbox/payloads"
	"github.com/makolahq/makola-backend/pkg/paystack"
)

const orderNumberConstraint = "ux_orders_order_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentInitiator interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs the checkout-to-order transaction.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx          txRunner
	cartRepo    cart.Repository
	couponRepo  coupons.Repository
	sellerRepo  sellers.Repository
	pricer      *pricing.Engine
	partitioner *Partitioner
	events      eventEmitter
	gateway     paymentInitiator
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	cfg         config.CheckoutConfig
}

// NewService wires the order transaction. The gateway may be nil when every
// configured payment method settles offline.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	couponRepo coupons.Repository,
	sellerRepo sellers.Repository,
	pricer *pricing.Engine,
	partitioner *Partitioner,
	events eventEmitter,
	gateway paymentInitiator,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if sellerRepo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if partitioner == nil {
		return nil, fmt.Errorf("partitioner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.OrderNumberAttempts <= 0 {
		cfg.OrderNumberAttempts = 3
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 5 * time.Second
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		couponRepo:  couponRepo,
		sellerRepo:  sellerRepo,
		pricer:      pricer,
		partitioner: partitioner,
		events:      events,
		gateway:     gateway,
		metrics:     m,
		logg:        logg,
		cfg:         cfg,
	}, nil
}

// Checkout validates the cart, prices it, and commits the order graph in one
// transaction. The payment gateway is contacted strictly after commit.
func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()
	ctx = s.logg.WithUserID(ctx, input.BuyerID.String())

	result, err := s.checkout(ctx, input)
	s.metrics.ObserveDuration(string(input.PaymentMethod), time.Since(started))
	if err != nil {
		s.metrics.IncFailure(failureReason(err))
		return nil, err
	}
	s.metrics.IncOrderCreated(string(input.PaymentMethod))
	return result, nil
}

func (s *service) checkout(ctx context.Context, input Input) (*Result, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.PaymentMethod.RequiresGateway() && s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method not available")
	}

	buyerCart, err := s.loadCart(ctx, input.BuyerID)
	if err != nil {
		return nil, err
	}
	if err := validateItems(buyerCart.Items); err != nil {
		return nil, err
	}

	platformSeller, err := s.loadPlatformSeller(ctx, buyerCart.Items)
	if err != nil {
		return nil, err
	}

	groups, totalShipping, err := s.partitioner.Partition(buyerCart.Items, platformSeller, input.ShippingAddress)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.LineItem, 0, len(buyerCart.Items))
	for _, item := range buyerCart.Items {
		lines = append(lines, pricing.LineItem{
			UnitPricePesewas: item.Product.PricePesewas,
			Quantity:         item.Quantity,
		})
	}
	quote, err := s.pricer.Price(ctx, lines, totalShipping, input.CouponCode)
	if err != nil {
		return nil, err
	}

	order, err := s.commitOrder(ctx, input, buyerCart, groups, quote)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order committed")

	result := &Result{
		Order:           order,
		PaymentRequired: input.PaymentMethod.RequiresGateway(),
	}
	if result.PaymentRequired {
		s.initiatePayment(ctx, input, order, result)
	}
	return result, nil
}

// commitOrder runs the atomic order transaction, retrying the whole attempt
// when the generated order number collides with the unique index.
func (s *service) commitOrder(
	ctx context.Context,
	input Input,
	buyerCart *models.Cart,
	groups []SellerGroup,
	quote *pricing.Quote,
) (*models.Order, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.OrderNumberAttempts; attempt++ {
		order := buildOrder(input, quote)

		txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
		err := s.tx.WithTx(txCtx, func(tx *gorm.DB) error {
			return s.createOrderGraph(txCtx, tx, input, buyerCart, groups, quote, order)
		})
		cancel()

		if err == nil {
			return order, nil
		}
		if db.IsUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			s.logg.Warn(s.logg.WithField(ctx, "order_number", order.OrderNumber), "order number collision, retrying")
			continue
		}
		return nil, coerceTxError(err)
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "exhausted order number attempts")
}

func (s *service) createOrderGraph(
	ctx context.Context,
	tx *gorm.DB,
	input Input,
	buyerCart *models.Cart,
	groups []SellerGroup,
	quote *pricing.Quote,
	order *models.Order,
) error {
	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		return err
	}

	payment := &models.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Method:        input.PaymentMethod,
		Status:        enums.PaymentStatusPending,
		AmountPesewas: quote.TotalPesewas,
		Reference:     order.OrderNumber,
	}
	if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
		return err
	}
	order.Payment = payment

	sellerOrderIDs := make([]uuid.UUID, 0, len(groups))
	for _, group := range groups {
		sellerOrder := &models.SellerOrder{
			ID:                uuid.New(),
			OrderID:           order.ID,
			SellerID:          group.Seller.ID,
			Status:            enums.SellerOrderStatusPending,
			SubtotalPesewas:   group.SubtotalPesewas,
			ShippingPesewas:   group.ShippingPesewas,
			CommissionPesewas: group.CommissionPesewas,
			PayoutPesewas:     group.PayoutPesewas,
		}
		if err := tx.WithContext(ctx).Create(sellerOrder).Error; err != nil {
			return err
		}
		sellerOrderIDs = append(sellerOrderIDs, sellerOrder.ID)

		for _, item := range group.Items {
			orderItem := &models.OrderItem{
				ID:               uuid.New(),
				OrderID:          order.ID,
				SellerOrderID:    sellerOrder.ID,
				ProductID:        item.Product.ID,
				ProductName:      item.Product.Name,
				SKU:              item.Product.SKU,
				ImageURL:         item.Product.PrimaryImage(),
				Quantity:         item.Quantity,
				UnitPricePesewas: item.Product.PricePesewas,
				LineTotalPesewas: item.Product.PricePesewas * item.Quantity,
			}
			if err := tx.WithContext(ctx).Create(orderItem).Error; err != nil {
				return err
			}
			sellerOrder.Items = append(sellerOrder.Items, *orderItem)
			order.Items = append(order.Items, *orderItem)

			if err := inventory.RecordSale(ctx, tx, inventory.SaleRequest{
				Product:  item.Product,
				Quantity: item.Quantity,
				OrderID:  order.ID,
			}); err != nil {
				return err
			}
		}
		order.SellerOrders = append(order.SellerOrders, *sellerOrder)
	}

	if quote.Coupon != nil {
		if err := s.couponRepo.WithTx(tx).IncrementUsage(ctx, quote.Coupon.ID); err != nil {
			return err
		}
	}

	if err := s.cartRepo.WithTx(tx).DeleteItemsByCart(ctx, buyerCart.ID); err != nil {
		return err
	}

	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.OrderCreatedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			BuyerID:        order.BuyerID,
			TotalPesewas:   order.TotalPesewas,
			PaymentMethod:  string(input.PaymentMethod),
			SellerOrderIDs: sellerOrderIDs,
		},
	})
}

// initiatePayment contacts the gateway after the order has committed. A
// failure here never unwinds the order; the result just reports that payment
// was not initialized.
func (s *service) initiatePayment(ctx context.Context, input Input, order *models.Order, result *Result) {
	auth, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     input.ContactEmail,
		Amount:    order.TotalPesewas,
		Currency:  string(order.Currency),
		Reference: order.Payment.Reference,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		s.logg.Error(ctx, "payment initialization failed after commit", err)
		return
	}
	result.PaymentInitialized = true
	result.Authorization = auth
}

func (s *service) loadCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	buyerCart, err := s.cartRepo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return buyerCart, nil
}

// loadPlatformSeller fetches the placeholder seller row when the cart holds
// seller-less items and one is configured.
func (s *service) loadPlatformSeller(ctx context.Context, items []models.CartItem) (*models.Seller, error) {
	needed := false
	for _, item := range items {
		if item.Product != nil && item.Product.SellerID == nil {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	platformID := s.partitioner.PlatformSellerID()
	if platformID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no seller")
	}
	seller, err := s.sellerRepo.FindByID(ctx, *platformID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading platform seller")
	}
	return seller, nil
}

func buildOrder(input Input, quote *pricing.Quote) *models.Order {
	status := enums.OrderStatusPaymentPending
	if input.PaymentMethod == enums.PaymentMethodCashOnDelivery {
		status = enums.OrderStatusConfirmed
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(time.Now()),
		BuyerID:         input.BuyerID,
		Status:          status,
		Currency:        enums.CurrencyGHS,
		SubtotalPesewas: quote.SubtotalPesewas,
		DiscountPesewas: quote.DiscountPesewas,
		ShippingPesewas: quote.ShippingPesewas,
		TaxPesewas:      quote.TaxPesewas,
		TotalPesewas:    quote.TotalPesewas,
		ShipFullName:    input.ShippingAddress.FullName,
		ShipPhone:       input.ShippingAddress.Phone,
		ShipRegion:      input.ShippingAddress.Region,
		ShipCity:        input.ShippingAddress.City,
		ShipArea:        input.ShippingAddress.Area,
		ShipStreet:      input.ShippingAddress.Street,
		ShipGPSCode:     input.ShippingAddress.GPSCode,
		ContactEmail:    input.ContactEmail,
		ContactPhone:    input.ContactPhone,
		DeliveryNotes:   input.DeliveryNotes,
	}
	if quote.Coupon != nil {
		couponID := quote.Coupon.ID
		order.CouponID = &couponID
	}
	return order
}

// coerceTxError keeps coded errors intact and folds everything else (store
// timeouts, deadlocks) into a retryable internal error.
func coerceTxError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout transaction timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout transaction aborted")
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "internal"
}
