package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/api/middleware"
	"github.com/gildedlane/marketplace-backend/api/responses"
	"github.com/gildedlane/marketplace-backend/api/validators"
	"github.com/gildedlane/marketplace-backend/internal/orders"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
)

type deliveryStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty"`
}

// DeliveryOrderList pages the orders assigned to the calling agent.
func DeliveryOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := middleware.UserIDFromContext(r.Context())
		if agentID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		filter := orders.ListFilter{DeliveryBoyID: agentID}
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

// DeliveryOrderStatus applies a delivery-stage transition to an assigned order.
func DeliveryOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliveryStatusRequest
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
