package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/api/middleware"
	"github.com/gildedlane/marketplace-backend/api/responses"
	"github.com/gildedlane/marketplace-backend/api/validators"
	"github.com/gildedlane/marketplace-backend/internal/orders"
	"github.com/gildedlane/marketplace-backend/pkg/auth"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/types"
)

type createOrderRequest struct {
	BillingAddress  types.Address `json:"billing_address" validate:"required"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	ShippingMethod  string        `json:"shipping_method" validate:"required"`
	PaymentMethod   string        `json:"payment_method" validate:"required"`
}

type transitionOrderRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty"`
}

type returnOrderRequest struct {
	Kind string  `json:"kind" validate:"required,oneof=return exchange"`
	Note *string `json:"note,omitempty"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

type assignAgentRequest struct {
	DeliveryBoyID uuid.UUID `json:"delivery_boy_id" validate:"required"`
}

func actorFromRequest(r *http.Request) orders.Actor {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return orders.Actor{Type: enums.ActorTypeSystem}
	}
	return orders.Actor{ID: claims.UserID, Type: claims.ActorType()}
}

// OrderCreate converts the caller's cart into orders, one per vendor.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateFromCart(r.Context(), orders.CreateOrderInput{
			UserID:          userID,
			BillingAddress:  req.BillingAddress,
			ShippingAddress: req.ShippingAddress,
			ShippingMethod:  req.ShippingMethod,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// OrderList pages the caller's orders. Customers see their own orders,
// vendors the orders containing their items, admins everything.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var filter orders.ListFilter
		switch claims.ActorType() {
		case enums.ActorTypeAdmin:
			// no ownership filter
		case enums.ActorTypeVendor:
			if claims.VendorID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor membership required"))
				return
			}
			filter.VendorID = *claims.VendorID
		default:
			filter.UserID = claims.UserID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filter.Status = status
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, next, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope{Items: page, NextCursor: next})
	}
}

// OrderDetail returns one order after an ownership check.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !mayViewOrder(claims, order) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func mayViewOrder(claims *auth.AccessTokenClaims, order *models.Order) bool {
	switch claims.ActorType() {
	case enums.ActorTypeAdmin:
		return true
	case enums.ActorTypeVendor:
		if claims.VendorID == nil {
			return false
		}
		_, ok := order.VendorItems[*claims.VendorID]
		return ok
	case enums.ActorTypeDeliveryBoy:
		return order.AssignedDeliveryBoy != nil && *order.AssignedDeliveryBoy == claims.UserID
	default:
		return claims.UserID == order.UserID
	}
}

// OrderCancel lets a customer cancel their own order before shipment.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if claims.ActorType() == enums.ActorTypeCustomer && order.UserID != claims.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		cancelled, err := svc.TransitionStatus(r.Context(), orders.TransitionInput{
			OrderID: orderID,
			Target:  enums.OrderStatusCancelled,
			Actor:   actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelled)
	}
}

// OrderReturn lets a customer start a return or exchange on a delivered order.
func OrderReturn(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req returnOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if claims.ActorType() == enums.ActorTypeCustomer && order.UserID != claims.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		target := enums.OrderStatusReturned
		if req.Kind == "exchange" {
			target = enums.OrderStatusExchangeRequest
		}
		updated, err := svc.TransitionStatus(r.Context(), orders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Actor:   actorFromRequest(r),
			Note:    req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminOrderStatus applies an arbitrary status transition as an admin or vendor.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
			return
		}

		updated, err := svc.TransitionStatus(r.Context(), orders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Actor:   actorFromRequest(r),
			Note:    req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminOrderPayment records a payment status change from the payment provider.
func AdminOrderPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updatePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status"))
			return
		}

		updated, err := svc.UpdatePaymentStatus(r.Context(), orderID, status, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminOrderAssign attaches a delivery agent to an order.
func AdminOrderAssign(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req assignAgentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.AssignDeliveryAgent(r.Context(), orderID, req.DeliveryBoyID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
