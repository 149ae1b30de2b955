package checkout

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
)

func TestFinalizeAndErr(t *testing.T) {
	result := &ReadinessResult{
		RequiredFields: RequiredFields{HasItems: true},
	}
	result.Finalize()
	if !result.IsValid || !result.CanCheckout {
		t.Fatalf("expected clean result to be checkout-ready, got %+v", result)
	}
	if err := result.Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestErrCarriesItemizedIssues(t *testing.T) {
	result := &ReadinessResult{
		Errors: []string{"shipping address is required"},
		InventoryIssues: []InventoryIssue{{
			LineID:       uuid.New(),
			ProductID:    uuid.New(),
			RequestedQty: 3,
			AvailableQty: 1,
			Reason:       "insufficient stock",
		}},
		RequiredFields: RequiredFields{HasItems: true},
	}
	result.Finalize()
	if result.IsValid || result.CanCheckout {
		t.Fatalf("expected invalid result, got %+v", result)
	}

	err := result.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed.Code() != pkgerrors.CodeCheckoutValidation {
		t.Fatalf("expected checkout validation code, got %s", typed.Code())
	}
	details, ok := typed.Details().(*ReadinessResult)
	if !ok {
		t.Fatalf("expected readiness result details, got %T", typed.Details())
	}
	if len(details.Errors) != 1 || len(details.InventoryIssues) != 1 {
		t.Fatalf("expected full issue list in details, got %+v", details)
	}
}

func TestPriceDriftDoesNotBlockCheckout(t *testing.T) {
	result := &ReadinessResult{
		Warnings: []PriceDriftWarning{{
			LineID:                 uuid.New(),
			ProductID:              uuid.New(),
			CapturedUnitPriceCents: 12500,
			CurrentUnitPriceCents:  13900,
		}},
		RequiredFields: RequiredFields{HasItems: true},
	}
	result.Finalize()
	if !result.CanCheckout {
		t.Fatal("price drift must warn, not block")
	}
}
