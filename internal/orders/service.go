package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/internal/cart"
	"github.com/gildedlane/marketplace-backend/internal/catalog"
	"github.com/gildedlane/marketplace-backend/pkg/checkout"
	dbpkg "github.com/gildedlane/marketplace-backend/pkg/db"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/outbox"
	"github.com/gildedlane/marketplace-backend/pkg/outbox/payloads"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
	"github.com/gildedlane/marketplace-backend/pkg/types"
)

const createAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartReadiness interface {
	ValidateCheckout(ctx context.Context, owner cart.OwnerKey) (*checkout.ReadinessResult, error)
}

// CreateOrderInput is one checkout request for an authenticated user's cart.
type CreateOrderInput struct {
	UserID          uuid.UUID
	BillingAddress  types.Address
	ShippingAddress types.Address
	ShippingMethod  string
	PaymentMethod   string
}

// TransitionInput is one status-transition request.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   Actor
	Note    *string
}

// Service governs the order lifecycle: atomic creation from a checkout-ready
// cart, the role-gated status state machine, and delivery assignment.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor Actor) (*models.Order, error)
	AssignDeliveryAgent(ctx context.Context, orderID, agentID uuid.UUID, actor Actor) (*models.Order, error)
}

// ServiceParams carries order service dependencies.
type ServiceParams struct {
	Repo      *Repository
	Carts     *cart.Repository
	Catalog   *catalog.Repository
	Readiness cartReadiness
	Tx        txRunner
	Outbox    outboxEmitter
	Logg      *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      *Repository
	carts     *cart.Repository
	catalog   *catalog.Repository
	readiness cartReadiness
	tx        txRunner
	outbox    outboxEmitter
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an order service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository is required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repository is required")
	}
	if params.Readiness == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout readiness validator is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if params.Logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		carts:     params.Carts,
		catalog:   params.Catalog,
		readiness: params.Readiness,
		tx:        params.Tx,
		outbox:    params.Outbox,
		logg:      params.Logg,
		now:       now,
	}, nil
}

// CreateFromCart converts the user's cart into an immutable order. The order
// insert is the authoritative write; the cart is deleted only after commit and
// a failed cleanup is logged, not surfaced, since a stale cart is recoverable
// and a lost order is not.
func (s *service) CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	owner := cart.UserOwner(input.UserID)

	result, err := s.readiness.ValidateCheckout(ctx, owner)
	if err != nil {
		return nil, err
	}
	applyCheckoutFields(result, input)
	result.Finalize()
	if err := result.Err(); err != nil {
		return nil, err
	}

	sourceCart, err := s.carts.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	products, vendors, err := s.loadSnapshotSources(ctx, sourceCart.Items)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	for attempt := 0; attempt < createAttempts; attempt++ {
		orderNumber, err := GenerateOrderNumber(s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate order number")
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txCatalog := s.catalog.WithTx(tx)
			for _, item := range sourceCart.Items {
				ok, err := txCatalog.DecrementStock(ctx, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
			}

			candidate, err := buildOrder(sourceCart, input, orderNumber, products, vendors)
			if err != nil {
				return err
			}
			if err := s.repo.WithTx(tx).Create(ctx, candidate); err != nil {
				return err
			}

			vendorIDs := make([]uuid.UUID, 0, len(candidate.VendorItems))
			for vendorID := range candidate.VendorItems {
				vendorIDs = append(vendorIDs, vendorID)
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   candidate.ID,
				Data: payloads.OrderCreatedEvent{
					OrderID:     candidate.ID,
					OrderNumber: candidate.OrderNumber,
					UserID:      candidate.UserID,
					VendorIDs:   vendorIDs,
					TotalCents:  candidate.TotalCents,
				},
			}); err != nil {
				return err
			}

			order = candidate
			return nil
		})
		if err == nil {
			break
		}
		if dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
			order = nil
			continue
		}
		return nil, wrapOrderErr(err, "create order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
	}

	if err := s.carts.DeleteCart(ctx, sourceCart.ID); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"cart_id":  sourceCart.ID.String(),
			"order_id": order.ID.String(),
		})
		s.logg.Error(logCtx, "cart cleanup after order creation failed", err)
	}

	return order, nil
}

// GetByID loads one order with items and history.
func (s *service) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// List returns a filtered cursor page of orders.
func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, next, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, next, nil
}

// TransitionStatus applies one role-gated state-machine step. Delivery agents
// are authorized by target-set membership plus assignment; everyone else goes
// through the transition table. A rejected transition leaves status and
// history untouched.
func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if !input.Actor.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor type")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if err := s.authorizeTransition(order, input); err != nil {
			return err
		}

		fields := map[string]any{"status": input.Target}
		now := s.now()
		switch input.Target {
		case enums.OrderStatusDelivered:
			fields["delivered_at"] = now
			fields["fulfillment_status"] = enums.FulfillmentStatusFulfilled
		case enums.OrderStatusCancelled:
			fields["cancelled_at"] = now
		}

		// Cancelling or refunding before shipment returns the units.
		if (input.Target == enums.OrderStatusCancelled || input.Target == enums.OrderStatusRefunded) &&
			order.Status.IsPreShipment() {
			txCatalog := s.catalog.WithTx(tx)
			for _, item := range order.Items {
				if err := txCatalog.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := txRepo.UpdateStatusFields(ctx, order.ID, fields); err != nil {
			return err
		}
		if err := txRepo.AppendHistory(ctx, historyEntry(order.ID, input.Target, input.Actor, input.Note)); err != nil {
			return err
		}

		note := ""
		if input.Note != nil {
			note = *input.Note
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  order.Status,
				ToStatus:    input.Target,
				Note:        note,
			},
		}); err != nil {
			return err
		}

		updated, err = txRepo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, wrapOrderErr(err, "transition order status")
	}
	return updated, nil
}

func (s *service) authorizeTransition(order *models.Order, input TransitionInput) error {
	if input.Actor.Type == enums.ActorTypeDeliveryBoy {
		if !isDeliveryTarget(input.Target) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery agents cannot set this status")
		}
		if order.AssignedDeliveryBoy == nil {
			return pkgerrors.New(pkgerrors.CodePrecondition, "order has no assigned delivery agent")
		}
		if *order.AssignedDeliveryBoy != input.Actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this delivery agent")
		}
		return nil
	}

	if allowedTransition(order.Status, input.Target, input.Actor.Type) {
		return nil
	}
	if !actorMayEverSet(input.Target, input.Actor.Type) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not authorized to set this status")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed from the current state").
		WithDetails(map[string]any{
			"current_status": order.Status,
			"target_status":  input.Target,
		})
}

// UpdatePaymentStatus records what the payment collaborator reported. A paid
// report on a pending order also advances it to payment_confirmed as a system
// transition.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if actor.Type != enums.ActorTypeSystem && actor.Type != enums.ActorTypeAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor cannot update payment status")
	}

	var advance bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		advance = status == enums.PaymentStatusPaid && order.Status == enums.OrderStatusPendingPayment
		return txRepo.UpdateStatusFields(ctx, orderID, map[string]any{"payment_status": status})
	})
	if err != nil {
		return nil, wrapOrderErr(err, "update payment status")
	}

	if advance {
		return s.TransitionStatus(ctx, TransitionInput{
			OrderID: orderID,
			Target:  enums.OrderStatusPaymentConfirmed,
			Actor:   Actor{Type: enums.ActorTypeSystem},
		})
	}
	return s.GetByID(ctx, orderID)
}

// AssignDeliveryAgent binds the delivery agent reference. Until bound, every
// delivery-restricted transition fails with a precondition error.
func (s *service) AssignDeliveryAgent(ctx context.Context, orderID, agentID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil || agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and agent id are required")
	}
	if actor.Type != enums.ActorTypeSystem && actor.Type != enums.ActorTypeAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor cannot assign delivery agents")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot assign a delivery agent to a closed order")
		}
		if err := txRepo.AssignDeliveryBoy(ctx, orderID, agentID); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeliveryAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderDeliveryAssignedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				DeliveryBoyID: agentID,
			},
		}); err != nil {
			return err
		}
		updated, err = txRepo.FindByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, wrapOrderErr(err, "assign delivery agent")
	}
	return updated, nil
}

func (s *service) loadSnapshotSources(ctx context.Context, items []models.CartItem) (map[uuid.UUID]models.Product, map[uuid.UUID]models.Vendor, error) {
	productIDs := make([]uuid.UUID, 0, len(items))
	vendorIDSet := map[uuid.UUID]struct{}{}
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
		vendorIDSet[item.VendorID] = struct{}{}
	}
	vendorIDs := make([]uuid.UUID, 0, len(vendorIDSet))
	for id := range vendorIDSet {
		vendorIDs = append(vendorIDs, id)
	}

	productRows, err := s.catalog.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products for snapshot")
	}
	vendorRows, err := s.catalog.FindVendorsByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendors for snapshot")
	}

	products := make(map[uuid.UUID]models.Product, len(productRows))
	for _, row := range productRows {
		products[row.ID] = row
	}
	vendors := make(map[uuid.UUID]models.Vendor, len(vendorRows))
	for _, row := range vendorRows {
		vendors[row.ID] = row
	}
	return products, vendors, nil
}

// buildOrder snapshots the cart into an immutable order: item names, skus and
// vendor names resolved now, pricing copied from the cart's breakdown, items
// partitioned by vendor.
func buildOrder(sourceCart *models.Cart, input CreateOrderInput, orderNumber string, products map[uuid.UUID]models.Product, vendors map[uuid.UUID]models.Vendor) (*models.Order, error) {
	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(sourceCart.Items))
	vendorItems := types.VendorItems{}

	for _, line := range sourceCart.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product disappeared during checkout")
		}
		vendor, ok := vendors[line.VendorID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor disappeared during checkout")
		}

		item := models.OrderItem{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProductID:         line.ProductID,
			VendorID:          line.VendorID,
			VendorName:        vendor.Name,
			ProductName:       product.Name,
			SKU:               product.SKU,
			Variant:           line.Variant,
			RingSize:          line.RingSize,
			Personalization:   line.Personalization,
			GiftMessage:       line.GiftMessage,
			Quantity:          line.Quantity,
			UnitPriceCents:    line.UnitPriceCents,
			LineTotalCents:    line.UnitPriceCents * int64(line.Quantity),
			FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
		}
		items = append(items, item)
		vendorItems[line.VendorID] = append(vendorItems[line.VendorID], item.ID)
	}

	note := "order created"
	return &models.Order{
		ID:                orderID,
		OrderNumber:       orderNumber,
		UserID:            *sourceCart.UserID,
		Status:            enums.OrderStatusPendingPayment,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
		BillingAddress:    input.BillingAddress,
		ShippingAddress:   input.ShippingAddress,
		ShippingMethod:    strings.TrimSpace(input.ShippingMethod),
		PaymentMethod:     strings.TrimSpace(input.PaymentMethod),
		CouponCode:        sourceCart.CouponCode,
		SubtotalCents:     sourceCart.SubtotalCents,
		DiscountCents:     sourceCart.DiscountCents,
		TaxCents:          sourceCart.TaxCents,
		DeliveryFeeCents:  sourceCart.DeliveryFeeCents,
		TotalCents:        sourceCart.TotalCents,
		Currency:          sourceCart.Currency,
		VendorItems:       vendorItems,
		Items:             items,
		History: []models.OrderStatusHistory{{
			ID:        uuid.New(),
			OrderID:   orderID,
			Status:    enums.OrderStatusPendingPayment,
			ActorType: enums.ActorTypeSystem,
			Note:      &note,
		}},
	}, nil
}

func applyCheckoutFields(result *checkout.ReadinessResult, input CreateOrderInput) {
	if err := input.BillingAddress.Validate(); err != nil {
		result.Errors = append(result.Errors, "billing "+err.Error())
	} else {
		result.RequiredFields.BillingAddress = true
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		result.Errors = append(result.Errors, "shipping "+err.Error())
	} else {
		result.RequiredFields.ShippingAddress = true
	}
	if strings.TrimSpace(input.ShippingMethod) == "" {
		result.Errors = append(result.Errors, "shipping method is required")
	} else {
		result.RequiredFields.ShippingMethod = true
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		result.Errors = append(result.Errors, "payment method is required")
	} else {
		result.RequiredFields.PaymentMethod = true
	}
}

func historyEntry(orderID uuid.UUID, status enums.OrderStatus, actor Actor, note *string) *models.OrderStatusHistory {
	entry := &models.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		ActorType: actor.Type,
		Note:      note,
	}
	if actor.ID != uuid.Nil {
		actorID := actor.ID
		entry.ActorID = &actorID
	}
	return entry
}

func actorRef(actor Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{Role: actor.Type.String()}
	if actor.ID != uuid.Nil {
		ref.UserID = actor.ID
	}
	return ref
}

func wrapOrderErr(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
