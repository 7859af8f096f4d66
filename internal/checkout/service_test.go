package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/internal/cart"
	"github.com/makolahq/makola-backend/internal/coupons"
	"github.com/makolahq/makola-backend/internal/delivery"
	"github.com/makolahq/makola-backend/internal/pricing"
	"github.com/makolahq/makola-backend/internal/sellers"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/outbox"
	"github.com/makolahq/makola-backend/pkg/paystack"
	"github.com/makolahq/makola-backend/pkg/types"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	auth  *paystack.Authorization
	err   error
	calls int
}

func (g *stubGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	auth := *g.auth
	if auth.Reference == "" {
		auth.Reference = req.Reference
	}
	return &auth, nil
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

type checkoutEnv struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
}

func newCheckoutEnv(t *testing.T, cfg config.CheckoutConfig) *checkoutEnv {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Seller{}, &models.Product{}, &models.Cart{}, &models.CartItem{},
		&models.Coupon{}, &models.Order{}, &models.SellerOrder{}, &models.OrderItem{},
		&models.Payment{}, &models.InventoryLogEntry{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	couponRepo := coupons.NewRepository(db)

	pricer, err := pricing.NewEngine(couponRepo)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// Zero fees keep totals equal to the cart subtotal in the scenarios below.
	calc := delivery.NewCalculator(config.DeliveryConfig{HomeRegion: "greater accra"})
	partitioner, err := NewPartitioner(calc, cfg)
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}

	gateway := &stubGateway{auth: &paystack.Authorization{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		AccessCode:       "abc123",
	}}

	svc, err := NewService(
		testTxRunner{db: db},
		cart.NewRepository(db),
		couponRepo,
		sellers.NewRepository(db),
		pricer,
		partitioner,
		outbox.NewService(outbox.NewRepository(db), nil),
		gateway,
		nil,
		logg,
		cfg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &checkoutEnv{db: db, svc: svc, gateway: gateway}
}

func (e *checkoutEnv) seedSeller(t *testing.T) *models.Seller {
	t.Helper()
	seller := &models.Seller{
		ID:       uuid.New(),
		Name:     "Osu Traders",
		Phone:    "+233201112222",
		Region:   "Greater Accra",
		City:     "Accra",
		IsActive: true,
	}
	if err := e.db.Create(seller).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	return seller
}

func (e *checkoutEnv) seedProduct(t *testing.T, seller *models.Seller, price, stock int) *models.Product {
	t.Helper()
	var sellerID *uuid.UUID
	if seller != nil {
		id := seller.ID
		sellerID = &id
	}
	product := &models.Product{
		ID:             uuid.New(),
		SellerID:       sellerID,
		Name:           "Woven Basket",
		SKU:            "BSK-01",
		PricePesewas:   price,
		StockQuantity:  stock,
		TrackInventory: true,
		IsActive:       true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (e *checkoutEnv) seedCart(t *testing.T, buyerID uuid.UUID, product *models.Product, qty int) {
	t.Helper()
	c := &models.Cart{ID: uuid.New(), BuyerID: buyerID}
	if err := e.db.Create(c).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	item := &models.CartItem{
		ID:                uuid.New(),
		CartID:            c.ID,
		ProductID:         product.ID,
		Quantity:          qty,
		PriceAtAddPesewas: product.PricePesewas,
	}
	if err := e.db.Create(item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

func testInput(buyerID uuid.UUID, method enums.PaymentMethod) Input {
	return Input{
		BuyerID: buyerID,
		ShippingAddress: types.ShippingAddress{
			FullName: "Ama Mensah",
			Phone:    "+233209998888",
			Region:   "Greater Accra",
			City:     "Accra",
			Street:   "12 Oxford Street",
		},
		ContactEmail:  "ama@example.com",
		ContactPhone:  "+233209998888",
		PaymentMethod: method,
	}
}

func defaultCfg() config.CheckoutConfig {
	return config.CheckoutConfig{
		OrderNumberAttempts: 3,
		CommissionRate:      "0.10",
	}
}

func TestCheckoutCashOnDelivery(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 1_500_000, 5)
	env.seedCart(t, buyerID, product, 2)

	result, err := env.svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodCashOnDelivery))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("status = %s, want confirmed for COD", order.Status)
	}
	if order.SubtotalPesewas != 3_000_000 || order.TotalPesewas != 3_000_000 {
		t.Fatalf("totals = %d/%d, want 3000000/3000000", order.SubtotalPesewas, order.TotalPesewas)
	}
	if order.TotalPesewas != order.SubtotalPesewas-order.DiscountPesewas+order.ShippingPesewas+order.TaxPesewas {
		t.Fatalf("total identity violated: %+v", order)
	}
	if result.PaymentRequired || result.PaymentInitialized || result.Authorization != nil {
		t.Fatalf("COD should not touch the gateway: %+v", result)
	}
	if env.gateway.calls != 0 {
		t.Fatalf("gateway called %d times for COD", env.gateway.calls)
	}

	if len(order.SellerOrders) != 1 {
		t.Fatalf("expected 1 seller order, got %d", len(order.SellerOrders))
	}
	so := order.SellerOrders[0]
	if so.SubtotalPesewas != 3_000_000 || so.CommissionPesewas != 300_000 || so.PayoutPesewas != 2_700_000 {
		t.Fatalf("unexpected seller split: %+v", so)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPricePesewas != 1_500_000 || order.Items[0].LineTotalPesewas != 3_000_000 {
		t.Fatalf("unexpected order items: %+v", order.Items)
	}
	if order.Payment == nil || order.Payment.Status != enums.PaymentStatusPending || order.Payment.Reference != order.OrderNumber {
		t.Fatalf("unexpected payment: %+v", order.Payment)
	}

	var stock models.Product
	if err := env.db.First(&stock, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stock.StockQuantity != 3 {
		t.Fatalf("stock = %d, want 3", stock.StockQuantity)
	}

	var cartItems int64
	if err := env.db.Model(&models.CartItem{}).Count(&cartItems).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if cartItems != 0 {
		t.Fatalf("cart not emptied: %d items remain", cartItems)
	}

	var events int64
	if err := env.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).
		Count(&events).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected 1 order.created event, got %d", events)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	_, err := env.svc.Checkout(context.Background(), testInput(uuid.New(), enums.PaymentMethodCashOnDelivery))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var orders int64
	if err := env.db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("expected no orders, got %d", orders)
	}
}

func TestCheckoutCouponApplied(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 1_500_000, 5)
	env.seedCart(t, buyerID, product, 2)

	cap := 500_000
	coupon := models.Coupon{
		ID:                 uuid.New(),
		Code:               "SAVE10",
		Type:               enums.CouponTypePercentage,
		Value:              10,
		MaxDiscountPesewas: &cap,
		IsActive:           true,
	}
	if err := env.db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	input := testInput(buyerID, enums.PaymentMethodCashOnDelivery)
	input.CouponCode = "SAVE10"
	result, err := env.svc.Checkout(ctx, input)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if order.DiscountPesewas != 300_000 || order.TotalPesewas != 2_700_000 {
		t.Fatalf("discount/total = %d/%d, want 300000/2700000", order.DiscountPesewas, order.TotalPesewas)
	}
	if order.CouponID == nil || *order.CouponID != coupon.ID {
		t.Fatalf("order missing coupon reference")
	}

	var after models.Coupon
	if err := env.db.First(&after, "id = ?", coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon: %v", err)
	}
	if after.UsageCount != 1 {
		t.Fatalf("usage count = %d, want exactly 1", after.UsageCount)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 100_000, 1)
	env.seedCart(t, buyerID, product, 2)

	_, err := env.svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodCashOnDelivery))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	var orders int64
	if err := env.db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("expected no orders, got %d", orders)
	}

	var stock models.Product
	if err := env.db.First(&stock, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stock.StockQuantity != 1 {
		t.Fatalf("stock = %d, want untouched 1", stock.StockQuantity)
	}
}

func TestCheckoutLastUnitOnlyOnce(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 100_000, 1)

	buyerA := uuid.New()
	buyerB := uuid.New()
	env.seedCart(t, buyerA, product, 1)
	env.seedCart(t, buyerB, product, 1)

	if _, err := env.svc.Checkout(ctx, testInput(buyerA, enums.PaymentMethodCashOnDelivery)); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	_, err := env.svc.Checkout(ctx, testInput(buyerB, enums.PaymentMethodCashOnDelivery))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected second checkout to conflict, got %v", err)
	}

	var stock models.Product
	if err := env.db.First(&stock, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stock.StockQuantity != 0 {
		t.Fatalf("stock = %d, want 0 and never negative", stock.StockQuantity)
	}

	var orders int64
	if err := env.db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 1 {
		t.Fatalf("expected exactly 1 order, got %d", orders)
	}
}

func TestCheckoutGatewayInitFailureKeepsOrder(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	env.gateway.err = errors.New("gateway down")
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 250_000, 5)
	env.seedCart(t, buyerID, product, 1)

	result, err := env.svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodMobileMoney))
	if err != nil {
		t.Fatalf("checkout should survive gateway failure: %v", err)
	}
	if !result.PaymentRequired || result.PaymentInitialized || result.Authorization != nil {
		t.Fatalf("expected payment-not-initialized result, got %+v", result)
	}
	if result.Order.Status != enums.OrderStatusPaymentPending {
		t.Fatalf("status = %s, want payment_pending", result.Order.Status)
	}

	var orders int64
	if err := env.db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 1 {
		t.Fatalf("expected the committed order to remain, got %d", orders)
	}
}

func TestCheckoutGatewaySuccess(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 250_000, 5)
	env.seedCart(t, buyerID, product, 1)

	result, err := env.svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodCard))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !result.PaymentRequired || !result.PaymentInitialized {
		t.Fatalf("expected initialized payment, got %+v", result)
	}
	if result.Authorization == nil || result.Authorization.AuthorizationURL == "" {
		t.Fatalf("expected redirect handle")
	}
	if result.Order.Status != enums.OrderStatusPaymentPending {
		t.Fatalf("status = %s, want payment_pending until webhook", result.Order.Status)
	}
	if env.gateway.calls != 1 {
		t.Fatalf("gateway calls = %d, want 1", env.gateway.calls)
	}
}

func TestCheckoutRollsBackWhenOutboxFails(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 100_000, 5)
	env.seedCart(t, buyerID, product, 2)

	couponRepo := coupons.NewRepository(env.db)
	pricer, err := pricing.NewEngine(couponRepo)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	calc := delivery.NewCalculator(config.DeliveryConfig{HomeRegion: "greater accra"})
	partitioner, err := NewPartitioner(calc, defaultCfg())
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})

	svc, err := NewService(
		testTxRunner{db: env.db},
		cart.NewRepository(env.db),
		couponRepo,
		sellers.NewRepository(env.db),
		pricer,
		partitioner,
		failingEmitter{},
		nil,
		nil,
		logg,
		defaultCfg(),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodCashOnDelivery)); err == nil {
		t.Fatal("expected checkout to fail when the outbox insert fails")
	}

	var orders int64
	if err := env.db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("expected rollback to remove the order, got %d", orders)
	}

	var stock models.Product
	if err := env.db.First(&stock, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stock.StockQuantity != 5 {
		t.Fatalf("stock = %d, want restored 5", stock.StockQuantity)
	}

	var cartItems int64
	if err := env.db.Model(&models.CartItem{}).Count(&cartItems).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if cartItems != 1 {
		t.Fatalf("expected cart to survive rollback, got %d items", cartItems)
	}
}

func TestCheckoutMultiSeller(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	sellerA := env.seedSeller(t)
	sellerB := &models.Seller{
		ID:       uuid.New(),
		Name:     "Kumasi Crafts",
		Phone:    "+233203334444",
		Region:   "Ashanti",
		City:     "Kumasi",
		IsActive: true,
	}
	if err := env.db.Create(sellerB).Error; err != nil {
		t.Fatalf("seed seller b: %v", err)
	}

	productA := env.seedProduct(t, sellerA, 200_000, 5)
	productB := env.seedProduct(t, sellerB, 300_000, 5)

	c := &models.Cart{ID: uuid.New(), BuyerID: buyerID}
	if err := env.db.Create(c).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for _, p := range []*models.Product{productA, productB} {
		item := &models.CartItem{
			ID: uuid.New(), CartID: c.ID, ProductID: p.ID,
			Quantity: 1, PriceAtAddPesewas: p.PricePesewas,
		}
		if err := env.db.Create(item).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}

	result, err := env.svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodCashOnDelivery))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if len(order.SellerOrders) != 2 {
		t.Fatalf("expected 2 seller orders, got %d", len(order.SellerOrders))
	}
	sum := 0
	for _, so := range order.SellerOrders {
		sum += so.SubtotalPesewas
	}
	if sum != order.SubtotalPesewas {
		t.Fatalf("seller subtotals sum %d != order subtotal %d", sum, order.SubtotalPesewas)
	}
}

func TestOrderItemSnapshotSurvivesPriceChange(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t, defaultCfg())
	ctx := context.Background()
	buyerID := uuid.New()
	seller := env.seedSeller(t)
	product := env.seedProduct(t, seller, 100_000, 5)
	env.seedCart(t, buyerID, product, 1)

	result, err := env.svc.Checkout(ctx, testInput(buyerID, enums.PaymentMethodCashOnDelivery))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := env.db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("price_pesewas", 999_999).Error; err != nil {
		t.Fatalf("reprice product: %v", err)
	}

	var item models.OrderItem
	if err := env.db.First(&item, "order_id = ?", result.Order.ID).Error; err != nil {
		t.Fatalf("load order item: %v", err)
	}
	if item.UnitPricePesewas != 100_000 {
		t.Fatalf("snapshot price = %d, want original 100000", item.UnitPricePesewas)
	}
}
