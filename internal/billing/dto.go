package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

// CreatePaymentRequest starts a checkout. Amount is the client's quote and is
// only checked against the catalog.
type CreatePaymentRequest struct {
	MemorialID string           `json:"memorialId" validate:"required,uuid"`
	PlanType   string           `json:"planType" validate:"required"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// ConfirmPaymentRequest pairs the processor order with the internal payment.
type ConfirmPaymentRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required,uuid"`
}

// CreatePaymentResult carries the hosted checkout URL.
type CreatePaymentResult struct {
	PaymentID  uuid.UUID       `json:"paymentId"`
	OrderID    string          `json:"orderId"`
	ApproveURL string          `json:"approveUrl"`
	PlanType   enums.PlanType  `json:"planType"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// ConfirmResult describes the memorial after a confirmed payment. Replayed is
// set when the payment had already been applied.
type ConfirmResult struct {
	PaymentID  uuid.UUID       `json:"paymentId"`
	MemorialID *uuid.UUID      `json:"memorialId"`
	Status     string          `json:"status"`
	Replayed   bool            `json:"replayed"`
	Tier       enums.Tier      `json:"tier,omitempty"`
	State      lifecycle.State `json:"state,omitempty"`
	ExpiresAt  *time.Time      `json:"expiresAt"`
	CanEdit    *bool           `json:"canEdit,omitempty"`
}

// PaymentDTO is a billing record as shown to its owner.
type PaymentDTO struct {
	ID          uuid.UUID           `json:"id"`
	MemorialID  *uuid.UUID          `json:"memorialId"`
	PlanType    enums.PlanType      `json:"planType"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    string              `json:"currency"`
	Status      enums.PaymentStatus `json:"status"`
	OrderID     *string             `json:"orderId,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// SubscriptionDTO is a plan record created by a confirmed payment.
type SubscriptionDTO struct {
	ID         uuid.UUID        `json:"id"`
	MemorialID uuid.UUID        `json:"memorialId"`
	PaymentID  uuid.UUID        `json:"paymentId"`
	PlanType   enums.PlanType   `json:"planType"`
	Status     enums.PlanStatus `json:"status"`
	StartsAt   time.Time        `json:"startsAt"`
	EndsAt     *time.Time       `json:"endsAt"`
	AutoRenew  bool             `json:"autoRenew"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func paymentFromModel(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		MemorialID:  p.MemorialID,
		PlanType:    p.PlanType,
		Amount:      decimal.New(p.AmountCents, -2),
		Currency:    p.Currency,
		Status:      p.Status,
		OrderID:     p.ExternalOrderID,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
	}
}

// Plan records are reported expired once their end has passed.
func subscriptionFromModel(s models.Subscription, now time.Time) SubscriptionDTO {
	status := s.Status
	if status == enums.PlanStatusActive && s.EndsAt != nil && now.After(*s.EndsAt) {
		status = enums.PlanStatusExpired
	}
	return SubscriptionDTO{
		ID:         s.ID,
		MemorialID: s.MemorialID,
		PaymentID:  s.PaymentID,
		PlanType:   s.PlanType,
		Status:     status,
		StartsAt:   s.StartsAt,
		EndsAt:     s.EndsAt,
		AutoRenew:  s.AutoRenew,
		CreatedAt:  s.CreatedAt,
	}
}
