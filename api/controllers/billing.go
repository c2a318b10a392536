package controllers

import (
	"net/http"

	"github.com/angelmondragon/memorial-backend/api/middleware"
	"github.com/angelmondragon/memorial-backend/api/responses"
	"github.com/angelmondragon/memorial-backend/api/validators"
	"github.com/angelmondragon/memorial-backend/internal/billing"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

type planResponse struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
	Permanent  bool   `json:"permanent"`
	CanEdit    bool   `json:"canEdit"`
}

func BillingPlans(svc billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans := svc.Plans()
		out := make([]planResponse, 0, len(plans))
		for _, p := range plans {
			out = append(out, planResponse{
				Type:       string(p.Type),
				Name:       p.Name,
				Price:      p.Price.StringFixed(2),
				PriceCents: p.AmountCents(),
				Currency:   p.Currency,
				Permanent:  p.Permanent,
				CanEdit:    p.CanEdit,
			})
		}
		responses.WriteSuccess(w, map[string]any{"plans": out})
	}
}

// PaymentCreate opens a hosted checkout for a memorial plan.
func PaymentCreate(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body billing.CreatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePayment(r.Context(), middleware.ActorFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentConfirm verifies the order with the processor and applies the plan.
// Replays return the original outcome with replayed=true.
func PaymentConfirm(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body billing.ConfirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConfirmPayment(r.Context(), middleware.ActorFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PaymentList(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if actor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		rows, err := svc.ListPayments(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payments": rows})
	}
}

func SubscriptionList(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if actor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		rows, err := svc.ListSubscriptions(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"subscriptions": rows})
	}
}
