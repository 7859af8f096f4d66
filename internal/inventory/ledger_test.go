package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.InventoryLogEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, track, backorder bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		Name:           "Shea Butter 500g",
		SKU:            "SHEA-500",
		PricePesewas:   4500,
		StockQuantity:  stock,
		TrackInventory: track,
		AllowBackorder: backorder,
		IsActive:       true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestRecordSaleDecrementsAndLogs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 5, true, false)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return RecordSale(ctx, tx, SaleRequest{Product: product, Quantity: 2, OrderID: orderID})
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if after.StockQuantity != 3 {
		t.Fatalf("stock = %d, want 3", after.StockQuantity)
	}

	var entry models.InventoryLogEntry
	if err := db.First(&entry, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load log entry: %v", err)
	}
	if entry.Change != -2 || entry.PreviousQuantity != 5 || entry.NewQuantity != 3 {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Type != enums.InventoryChangeSale {
		t.Fatalf("log type = %s, want sale", entry.Type)
	}
	if entry.OrderID == nil || *entry.OrderID != orderID {
		t.Fatalf("log entry missing order reference")
	}
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 1, true, false)

	err := db.Transaction(func(tx *gorm.DB) error {
		return RecordSale(ctx, tx, SaleRequest{Product: product, Quantity: 2, OrderID: uuid.New()})
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if after.StockQuantity != 1 {
		t.Fatalf("stock = %d, want untouched 1", after.StockQuantity)
	}

	var count int64
	if err := db.Model(&models.InventoryLogEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count log entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no log entries, got %d", count)
	}
}

func TestRecordSaleLastUnitOnlyOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 1, true, false)

	first := db.Transaction(func(tx *gorm.DB) error {
		return RecordSale(ctx, tx, SaleRequest{Product: product, Quantity: 1, OrderID: uuid.New()})
	})
	second := db.Transaction(func(tx *gorm.DB) error {
		return RecordSale(ctx, tx, SaleRequest{Product: product, Quantity: 1, OrderID: uuid.New()})
	})

	if first != nil {
		t.Fatalf("first sale: %v", first)
	}
	if typed := pkgerrors.As(second); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected second sale to conflict, got %v", second)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if after.StockQuantity != 0 {
		t.Fatalf("stock = %d, want 0 and never negative", after.StockQuantity)
	}
}

func TestRecordSaleBackorderGoesNegative(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 1, true, true)

	err := db.Transaction(func(tx *gorm.DB) error {
		return RecordSale(ctx, tx, SaleRequest{Product: product, Quantity: 3, OrderID: uuid.New()})
	})
	if err != nil {
		t.Fatalf("record backorder sale: %v", err)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if after.StockQuantity != -2 {
		t.Fatalf("stock = %d, want -2", after.StockQuantity)
	}
}

func TestRecordSaleUntrackedIsNoop(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 0, false, false)

	err := db.Transaction(func(tx *gorm.DB) error {
		return RecordSale(ctx, tx, SaleRequest{Product: product, Quantity: 10, OrderID: uuid.New()})
	})
	if err != nil {
		t.Fatalf("record untracked sale: %v", err)
	}

	var count int64
	if err := db.Model(&models.InventoryLogEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count log entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no log entries for untracked product, got %d", count)
	}
}

func TestRecordRestock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 2, true, false)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return RecordRestock(ctx, tx, product.ID, 3, &orderID)
	})
	if err != nil {
		t.Fatalf("record restock: %v", err)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if after.StockQuantity != 5 {
		t.Fatalf("stock = %d, want 5", after.StockQuantity)
	}

	var entry models.InventoryLogEntry
	if err := db.First(&entry, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load log entry: %v", err)
	}
	if entry.Change != 3 || entry.PreviousQuantity != 2 || entry.NewQuantity != 5 {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Type != enums.InventoryChangeRestock {
		t.Fatalf("log type = %s, want restock", entry.Type)
	}
}
