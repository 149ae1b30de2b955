package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
)

// InventoryIssue describes one line that cannot be fulfilled as carted.
type InventoryIssue struct {
	LineID       uuid.UUID `json:"line_id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty int       `json:"available_qty"`
	Reason       string    `json:"reason"`
}

// PriceDriftWarning flags a line whose catalog price moved since it was added.
// Drift never blocks checkout and the carted price is never silently replaced.
type PriceDriftWarning struct {
	LineID                 uuid.UUID `json:"line_id"`
	ProductID              uuid.UUID `json:"product_id"`
	CapturedUnitPriceCents int64     `json:"captured_unit_price_cents"`
	CurrentUnitPriceCents  int64     `json:"current_unit_price_cents"`
}

// RequiredFields reports which checkout inputs are present. The cart-side
// readiness check only knows about items; the remaining flags are filled in
// when an order-creation request supplies its selections.
type RequiredFields struct {
	HasItems        bool `json:"has_items"`
	BillingAddress  bool `json:"billing_address"`
	ShippingAddress bool `json:"shipping_address"`
	ShippingMethod  bool `json:"shipping_method"`
	PaymentMethod   bool `json:"payment_method"`
}

// ReadinessResult is the structured outcome of a checkout-readiness pass.
// IsValid means no errors were found; CanCheckout additionally requires every
// required field to be present.
type ReadinessResult struct {
	IsValid         bool                `json:"is_valid"`
	CanCheckout     bool                `json:"can_checkout"`
	Errors          []string            `json:"errors"`
	Warnings        []PriceDriftWarning `json:"warnings"`
	RequiredFields  RequiredFields      `json:"required_fields"`
	InventoryIssues []InventoryIssue    `json:"inventory_issues"`
}

// Finalize derives the summary flags from the collected issues and fields.
// Field flags other than HasItems are informational at the cart level; order
// creation appends an error for each missing one before finalizing.
func (r *ReadinessResult) Finalize() {
	r.IsValid = len(r.Errors) == 0 && len(r.InventoryIssues) == 0
	r.CanCheckout = r.IsValid && r.RequiredFields.HasItems
}

// Err returns nil when checkout may proceed, otherwise an error carrying the
// full itemized result so a client can render every problem at once.
func (r *ReadinessResult) Err() error {
	if r.CanCheckout {
		return nil
	}
	issueCount := len(r.Errors) + len(r.InventoryIssues)
	return pkgerrors.New(pkgerrors.CodeCheckoutValidation,
		fmt.Sprintf("cart is not ready for checkout (%d issue(s))", issueCount)).
		WithDetails(r)
}
