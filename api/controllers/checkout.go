package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/api/middleware"
	"github.com/forkline/forkline-backend/api/responses"
	"github.com/forkline/forkline-backend/api/validators"
	"github.com/forkline/forkline-backend/internal/checkout"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

const idempotencyKeyHeader = "Idempotency-Key"

type checkoutBody struct {
	CartID        uuid.UUID           `json:"cart_id" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method,omitempty"`
}

// Checkout converts a cart into an order. The Idempotency-Key header is
// required so retries replay the original order instead of double charging.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service not configured"))
			return
		}
		key := r.Header.Get(idempotencyKeyHeader)
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is required"))
			return
		}
		var body checkoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Checkout(r.Context(), middleware.ActorFromContext(r.Context()), checkout.Request{
			CartID:         body.CartID,
			IdempotencyKey: key,
			PaymentMethod:  body.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
