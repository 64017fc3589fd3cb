package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/api/middleware"
	"github.com/forkline/forkline-backend/api/responses"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service not configured"))
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func OrderListForRestaurant(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderList(svc, logg, svcListRestaurant)
}

func OrderListForSupplier(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderList(svc, logg, svcListSupplier)
}

type orderLister func(svc orders.Service, r *http.Request, partyID uuid.UUID, filters orders.ListFilters) (*orders.ListResponse, error)

func svcListRestaurant(svc orders.Service, r *http.Request, partyID uuid.UUID, filters orders.ListFilters) (*orders.ListResponse, error) {
	params, err := pageParams(r)
	if err != nil {
		return nil, err
	}
	return svc.ListForRestaurant(r.Context(), middleware.ActorFromContext(r.Context()), partyID, filters, params)
}

func svcListSupplier(svc orders.Service, r *http.Request, partyID uuid.UUID, filters orders.ListFilters) (*orders.ListResponse, error) {
	params, err := pageParams(r)
	if err != nil {
		return nil, err
	}
	return svc.ListForSupplier(r.Context(), middleware.ActorFromContext(r.Context()), partyID, filters, params)
}

func orderList(svc orders.Service, logg *logger.Logger, list orderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service not configured"))
			return
		}
		partyID, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := orderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := list(svc, r, partyID, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func orderFilters(r *http.Request) (orders.ListFilters, error) {
	var filters orders.ListFilters
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filters.Status = &status
	}
	return filters, nil
}

func OrderConfirm(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, orders.Service.Confirm)
}

func OrderDeliver(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, orders.Service.Deliver)
}

func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, orders.Service.Cancel)
}

func orderTransition(svc orders.Service, logg *logger.Logger, op func(orders.Service, context.Context, ownership.Actor, uuid.UUID) (*orders.OrderDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service not configured"))
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := op(svc, r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func OrderReceipt(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service not configured"))
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Receipt(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func OrderInvoice(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service not configured"))
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Invoice(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
