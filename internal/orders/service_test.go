package orders

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/internal/cart"
	"github.com/gildedlane/marketplace-backend/internal/catalog"
	"github.com/gildedlane/marketplace-backend/internal/pricing"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/outbox"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
	"github.com/gildedlane/marketplace-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  materials TEXT,
  variants TEXT,
  sizes TEXT,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  rating_avg REAL NOT NULL DEFAULT 0,
  rating_count INTEGER NOT NULL DEFAULT 0,
  ratings_breakdown TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_token TEXT,
  coupon_code TEXT,
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  variant TEXT,
  ring_size TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  personalization TEXT,
  gift_message TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_payment',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  fulfillment_status TEXT NOT NULL DEFAULT 'unfulfilled',
  billing_address TEXT,
  shipping_address TEXT,
  shipping_method TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  coupon_code TEXT,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  vendor_items TEXT,
  assigned_delivery_boy TEXT,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  vendor_name TEXT NOT NULL,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  variant TEXT,
  ring_size TEXT,
  personalization TEXT,
  gift_message TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  fulfillment_status TEXT NOT NULL DEFAULT 'unfulfilled',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  actor_id TEXT,
  actor_type TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type ordersTxRunner struct {
	db *gorm.DB
}

func (t *ordersTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(fn)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("outbox emit outside transaction")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return s.Emit(ctx, tx, event)
}

func (s *stubOutbox) typesSeen() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}

type noCoupons struct{}

func (noCoupons) Validate(_ context.Context, _ string, _ int64) (*pricing.Coupon, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
}

type orderTestStack struct {
	db       *gorm.DB
	carts    cart.Service
	cartRepo *cart.Repository
	catalog  *catalog.Repository
	orders   Service
	outbox   *stubOutbox
}

func newOrderStack(t *testing.T) *orderTestStack {
	t.Helper()

	db := setupOrdersTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	tx := &ordersTxRunner{db: db}
	cartRepo := cart.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Tx:       tx,
		Products: catalogRepo,
		Coupons:  noCoupons{},
		Policy: pricing.Policy{
			TaxRateBps:        1000,
			FreeShippingCents: 10000,
			DeliveryFeeCents:  500,
			Currency:          "USD",
		},
		MaxLineQty: 10,
		Logg:       logg,
	})
	require.NoError(t, err)

	sink := &stubOutbox{}
	orderSvc, err := NewService(ServiceParams{
		Repo:      NewRepository(db),
		Carts:     cartRepo,
		Catalog:   catalogRepo,
		Readiness: cartSvc,
		Tx:        tx,
		Outbox:    sink,
		Logg:      logg,
	})
	require.NoError(t, err)

	return &orderTestStack{
		db:       db,
		carts:    cartSvc,
		cartRepo: cartRepo,
		catalog:  catalogRepo,
		orders:   orderSvc,
		outbox:   sink,
	}
}

func seedVendorAndProduct(t *testing.T, db *gorm.DB, vendorName string, priceCents int64, stock int) *models.Product {
	t.Helper()

	vendor := &models.Vendor{
		ID:       uuid.New(),
		Name:     vendorName,
		Slug:     strings.ToLower(vendorName) + "-" + uuid.NewString()[:8],
		IsActive: true,
	}
	require.NoError(t, db.Create(vendor).Error)

	product := &models.Product{
		ID:         uuid.New(),
		VendorID:   vendor.ID,
		Name:       vendorName + " Ring",
		SKU:        "SKU-" + uuid.NewString()[:8],
		Category:   "rings",
		PriceCents: priceCents,
		Currency:   "USD",
		StockQty:   stock,
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func testAddress() types.Address {
	return types.Address{
		FullName:   "Avery Quinn",
		Line1:      "12 Goldsmith Row",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func createTestOrder(t *testing.T, stack *orderTestStack, userID uuid.UUID, products ...*models.Product) *models.Order {
	t.Helper()

	owner := cart.UserOwner(userID)
	for _, product := range products {
		_, err := stack.carts.AddItem(context.Background(), owner, cart.AddItemInput{ProductID: product.ID, Quantity: 1})
		require.NoError(t, err)
	}

	order, err := stack.orders.CreateFromCart(context.Background(), CreateOrderInput{
		UserID:          userID,
		BillingAddress:  testAddress(),
		ShippingAddress: testAddress(),
		ShippingMethod:  "standard",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	return order
}

func TestCreateFromCartSplitsItemsByVendor(t *testing.T) {
	stack := newOrderStack(t)
	first := seedVendorAndProduct(t, stack.db, "Aurelia", 10000, 5)
	second := seedVendorAndProduct(t, stack.db, "Halcyon", 20000, 5)
	userID := uuid.New()

	order := createTestOrder(t, stack, userID, first, second)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "GL-"))
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 2)
	require.Len(t, order.VendorItems, 2)
	for _, item := range order.Items {
		assert.True(t, order.VendorItems.Contains(item.VendorID, item.ID),
			"item %s missing from its vendor bucket", item.ID)
		assert.NotEmpty(t, item.VendorName)
		assert.NotEmpty(t, item.SKU)
	}

	// Pricing snapshot equals the cart breakdown: 30000 subtotal + 10% tax.
	assert.Equal(t, int64(30000), order.SubtotalCents)
	assert.Equal(t, int64(3000), order.TaxCents)
	assert.Equal(t, int64(33000), order.TotalCents)

	// Initial history entry is written by the system.
	require.Len(t, order.History, 1)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.History[0].Status)
	assert.Equal(t, enums.ActorTypeSystem, order.History[0].ActorType)

	// Stock was decremented and the cart deleted.
	reloaded, err := stack.catalog.FindProductByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.StockQty)
	_, err = stack.cartRepo.FindByOwner(context.Background(), cart.UserOwner(userID))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Contains(t, stack.outbox.typesSeen(), enums.EventOrderCreated)
}

func TestCreateFromCartRejectsNotReadyCart(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Meridian", 10000, 3)
	userID := uuid.New()

	_, err := stack.carts.AddItem(context.Background(), cart.UserOwner(userID), cart.AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	// Stock sells out before checkout.
	require.NoError(t, stack.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock_qty", 1).Error)

	_, err = stack.orders.CreateFromCart(context.Background(), CreateOrderInput{
		UserID:          userID,
		BillingAddress:  testAddress(),
		ShippingAddress: testAddress(),
		ShippingMethod:  "standard",
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCheckoutValidation, typed.Code())

	// No partial order was persisted and the cart survived.
	var count int64
	require.NoError(t, stack.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Zero(t, count)
	_, err = stack.cartRepo.FindByOwner(context.Background(), cart.UserOwner(userID))
	require.NoError(t, err)
}

func TestCreateFromCartRequiresCheckoutFields(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Lumen", 10000, 3)
	userID := uuid.New()

	_, err := stack.carts.AddItem(context.Background(), cart.UserOwner(userID), cart.AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = stack.orders.CreateFromCart(context.Background(), CreateOrderInput{
		UserID:         userID,
		BillingAddress: testAddress(),
		ShippingMethod: "standard",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCheckoutValidation, typed.Code())
}

func TestTransitionStatusHappyPathAppendsHistory(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Solstice", 10000, 3)
	order := createTestOrder(t, stack, uuid.New(), product)
	admin := Actor{ID: uuid.New(), Type: enums.ActorTypeAdmin}

	updated, err := stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPaymentConfirmed,
		Actor:   admin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaymentConfirmed, updated.Status)

	updated, err = stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusConfirmed,
		Actor:   admin,
	})
	require.NoError(t, err)
	require.Len(t, updated.History, 3)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.History[2].Status)
	assert.Equal(t, enums.ActorTypeAdmin, updated.History[2].ActorType)
	require.NotNil(t, updated.History[2].ActorID)
	assert.Equal(t, admin.ID, *updated.History[2].ActorID)

	assert.Contains(t, stack.outbox.typesSeen(), enums.EventOrderStatusChanged)
}

func TestTransitionStatusRejectsUnauthorizedActor(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Cobalt", 10000, 3)
	order := createTestOrder(t, stack, uuid.New(), product)

	_, err := stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusShipped,
		Actor:   Actor{ID: uuid.New(), Type: enums.ActorTypeCustomer},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// A rejected transition leaves status and history untouched.
	reloaded, err := stack.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, reloaded.Status)
	assert.Len(t, reloaded.History, 1)
}

func TestTransitionStatusStateConflict(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Vesper", 10000, 3)
	order := createTestOrder(t, stack, uuid.New(), product)

	// Shipped is a valid admin target, but not from pending_payment.
	_, err := stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusShipped,
		Actor:   Actor{ID: uuid.New(), Type: enums.ActorTypeAdmin},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDeliveryAgentGating(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Nocturne", 10000, 3)
	order := createTestOrder(t, stack, uuid.New(), product)
	agentA := Actor{ID: uuid.New(), Type: enums.ActorTypeDeliveryBoy}
	agentB := uuid.New()
	admin := Actor{ID: uuid.New(), Type: enums.ActorTypeAdmin}

	// Unassigned order: precondition failure.
	_, err := stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPickedUp,
		Actor:   agentA,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePrecondition, pkgerrors.As(err).Code())

	// Assigned to B: agent A is rejected.
	_, err = stack.orders.AssignDeliveryAgent(context.Background(), order.ID, agentB, admin)
	require.NoError(t, err)
	_, err = stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		Actor:   agentA,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// Delivery agents cannot set statuses outside their subset.
	_, err = stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		Actor:   Actor{ID: agentB, Type: enums.ActorTypeDeliveryBoy},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// The assigned agent may deliver.
	updated, err := stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		Actor:   Actor{ID: agentB, Type: enums.ActorTypeDeliveryBoy},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)
	assert.Equal(t, enums.FulfillmentStatusFulfilled, updated.FulfillmentStatus)
	assert.NotNil(t, updated.DeliveredAt)
}

func TestCancelPreShipmentRestoresStock(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Ember", 10000, 5)
	userID := uuid.New()
	order := createTestOrder(t, stack, userID, product)

	afterCreate, err := stack.catalog.FindProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, afterCreate.StockQty)

	updated, err := stack.orders.TransitionStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		Actor:   Actor{ID: userID, Type: enums.ActorTypeCustomer},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	assert.NotNil(t, updated.CancelledAt)

	restored, err := stack.catalog.FindProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, restored.StockQty)
}

func TestUpdatePaymentStatusAdvancesPendingOrder(t *testing.T) {
	stack := newOrderStack(t)
	product := seedVendorAndProduct(t, stack.db, "Gilt", 10000, 3)
	order := createTestOrder(t, stack, uuid.New(), product)

	updated, err := stack.orders.UpdatePaymentStatus(context.Background(), order.ID, enums.PaymentStatusPaid, Actor{Type: enums.ActorTypeSystem})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPaymentConfirmed, updated.Status)
	require.Len(t, updated.History, 2)
}

func TestListFiltersByVendor(t *testing.T) {
	stack := newOrderStack(t)
	first := seedVendorAndProduct(t, stack.db, "Quartz", 10000, 5)
	second := seedVendorAndProduct(t, stack.db, "Onyx", 10000, 5)

	createTestOrder(t, stack, uuid.New(), first)
	createTestOrder(t, stack, uuid.New(), second)

	orders, _, err := stack.orders.List(context.Background(), ListFilter{VendorID: first.VendorID}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, first.VendorID, orders[0].Items[0].VendorID)
}
