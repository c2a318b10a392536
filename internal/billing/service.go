// Package billing sells memorial plans through the payment processor and
// applies confirmed payments to the memorial lifecycle.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/internal/memorials"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/square"
	"github.com/angelmondragon/memorial-backend/pkg/visibility"
)

const (
	outcomeApplied  = "applied"
	outcomeReplayed = "replayed"
	outcomeUnpaid   = "unpaid"
	outcomeFailed   = "failed"
)

// Processor is the payment processor surface billing needs.
type Processor interface {
	CreateCheckout(ctx context.Context, params square.CheckoutParams) (*square.Checkout, error)
	LookupOrder(ctx context.Context, orderID string) (*square.OrderStatus, error)
}

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type billingMetrics interface {
	IncTransition(from, to string)
	IncConfirmation(outcome string)
}

// Service exposes plan purchase operations.
type Service interface {
	Plans() []Plan
	CreatePayment(ctx context.Context, actor *visibility.Actor, req CreatePaymentRequest) (*CreatePaymentResult, error)
	ConfirmPayment(ctx context.Context, actor *visibility.Actor, req ConfirmPaymentRequest) (*ConfirmResult, error)
	ListPayments(ctx context.Context, userID uuid.UUID) ([]PaymentDTO, error)
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]SubscriptionDTO, error)
}

// ServiceParams wires the billing service. Processor may be nil, in which case
// the catalog and history stay readable but purchases are refused.
type ServiceParams struct {
	DB        txRunner
	Processor Processor
	Catalog   *Catalog
	Engine    *lifecycle.Engine
	Metrics   billingMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
	BaseURL   string
}

type service struct {
	db        txRunner
	processor Processor
	catalog   *Catalog
	engine    *lifecycle.Engine
	metrics   billingMetrics
	logg      *logger.Logger
	now       func() time.Time
	baseURL   string
}

// NewService constructs the billing service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("plan catalog required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("lifecycle engine required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		db:        params.DB,
		processor: params.Processor,
		catalog:   params.Catalog,
		engine:    params.Engine,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       func() time.Time { return clock().UTC() },
		baseURL:   strings.TrimRight(strings.TrimSpace(params.BaseURL), "/"),
	}, nil
}

func (s *service) Plans() []Plan {
	return s.catalog.List()
}

func (s *service) CreatePayment(ctx context.Context, actor *visibility.Actor, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	plan, err := s.catalog.Lookup(req.PlanType)
	if err != nil {
		return nil, err
	}
	if err := plan.CheckAmount(req.Amount); err != nil {
		return nil, err
	}
	memorialID, err := uuid.Parse(strings.TrimSpace(req.MemorialID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid memorial id")
	}
	if s.processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured")
	}

	memRepo := memorials.NewRepository(s.db.DB())
	m, err := memRepo.FindByID(ctx, memorialID)
	if err != nil {
		return nil, db.Classify(err, "Memorial not found")
	}
	if err := visibility.EnsurePayable(m, actor); err != nil {
		return nil, err
	}
	// Reject purchases the lifecycle would refuse before any money moves.
	if _, err := s.engine.Apply(entitlementOf(m), plan.Type, s.now()); err != nil {
		return nil, err
	}

	repo := NewRepository(s.db.DB())
	payment := &models.Payment{
		UserID:      actor.UserID,
		MemorialID:  &m.ID,
		PlanType:    plan.Type,
		AmountCents: plan.AmountCents(),
		Currency:    plan.Currency,
		Status:      enums.PaymentStatusPending,
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, db.Classify(err, "create payment")
	}

	checkout, err := s.processor.CreateCheckout(ctx, square.CheckoutParams{
		IdempotencyKey: "payment-" + payment.ID.String(),
		Name:           plan.Name,
		Note:           m.Name,
		AmountCents:    payment.AmountCents,
		Currency:       payment.Currency,
		RedirectURL:    s.successURL(payment.ID),
	})
	if err != nil {
		s.markFailed(ctx, repo, payment.ID, err.Error())
		return nil, err
	}
	if checkout == nil || checkout.OrderID == "" || checkout.URL == "" {
		s.markFailed(ctx, repo, payment.ID, "incomplete checkout")
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "payment processor returned an incomplete checkout")
	}
	if err := repo.AttachCheckout(ctx, payment.ID, checkout.OrderID, checkout.URL); err != nil {
		return nil, db.Classify(err, "store checkout")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":  payment.ID.String(),
			"memorial_id": m.ID.String(),
			"plan_type":   string(plan.Type),
		})
		s.logg.Info(logCtx, "payment.created")
	}

	return &CreatePaymentResult{
		PaymentID:  payment.ID,
		OrderID:    checkout.OrderID,
		ApproveURL: checkout.URL,
		PlanType:   plan.Type,
		Amount:     plan.Price,
		Currency:   plan.Currency,
	}, nil
}

// markFailed records why a checkout was never opened. The caller already has
// its own error to return, so a failed write is only logged.
func (s *service) markFailed(ctx context.Context, repo *Repository, paymentID uuid.UUID, reason string) {
	if err := repo.MarkFailed(ctx, paymentID, reason); err != nil && s.logg != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "payment_id", paymentID.String()), "payment.mark_failed", err)
	}
}

func (s *service) ConfirmPayment(ctx context.Context, actor *visibility.Actor, req ConfirmPaymentRequest) (*ConfirmResult, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	paymentID, err := uuid.Parse(strings.TrimSpace(req.PaymentID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	repo := NewRepository(s.db.DB())
	payment, err := repo.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, db.Classify(err, "Payment not found")
	}
	if payment.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "You do not have permission to confirm this payment")
	}
	if payment.ExternalOrderID == nil || *payment.ExternalOrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order does not match payment")
	}

	switch payment.Status {
	case enums.PaymentStatusCompleted:
		s.countConfirmation(outcomeReplayed)
		return s.replayed(ctx, payment)
	case enums.PaymentStatusFailed:
		s.countConfirmation(outcomeFailed)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has failed").
			WithDetails(map[string]any{"status": string(payment.Status)})
	}
	if payment.MemorialID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Memorial not found")
	}
	if s.processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured")
	}

	order, err := s.processor.LookupOrder(ctx, orderID)
	if err != nil {
		s.countConfirmation(outcomeFailed)
		return nil, err
	}
	if !order.Paid {
		s.countConfirmation(outcomeUnpaid)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not been completed").
			WithDetails(map[string]any{"orderState": order.State})
	}

	var (
		transition lifecycle.Transition
		applied    bool
	)
	now := s.now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := NewRepository(tx)
		affected, err := txRepo.MarkCompleted(ctx, payment.ID, order.PaymentID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		memRepo := memorials.NewRepository(tx)
		m, err := memRepo.FindByID(ctx, *payment.MemorialID)
		if err != nil {
			return err
		}
		transition, err = s.engine.Apply(entitlementOf(m), payment.PlanType, now)
		if err != nil {
			return err
		}
		if _, err := memRepo.UpdateEntitlement(ctx, m.ID, transition.Result); err != nil {
			return err
		}
		if m.OwnerID == nil {
			if _, err := memRepo.ClaimOwner(ctx, m.ID, payment.UserID); err != nil {
				return err
			}
		}

		startsAt, endsAt := lifecycle.PlanWindow(transition, now)
		if err := txRepo.CreateSubscription(ctx, &models.Subscription{
			UserID:     payment.UserID,
			MemorialID: m.ID,
			PaymentID:  payment.ID,
			PlanType:   payment.PlanType,
			Status:     enums.PlanStatusActive,
			StartsAt:   startsAt,
			EndsAt:     endsAt,
		}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		s.countConfirmation(outcomeFailed)
		return nil, db.Classify(err, "confirm payment")
	}
	if !applied {
		s.countConfirmation(outcomeReplayed)
		return s.replayed(ctx, payment)
	}

	s.countConfirmation(outcomeApplied)
	if s.metrics != nil {
		s.metrics.IncTransition(string(transition.From), string(transition.To))
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":  payment.ID.String(),
			"memorial_id": payment.MemorialID.String(),
			"from":        string(transition.From),
			"to":          string(transition.To),
		})
		s.logg.Info(logCtx, "payment.confirmed")
	}

	canEdit := transition.Result.CanEdit
	return &ConfirmResult{
		PaymentID:  payment.ID,
		MemorialID: payment.MemorialID,
		Status:     string(enums.PaymentStatusCompleted),
		Tier:       transition.Result.Tier,
		State:      transition.To,
		ExpiresAt:  transition.Result.ExpiresAt,
		CanEdit:    &canEdit,
	}, nil
}

func (s *service) ListPayments(ctx context.Context, userID uuid.UUID) ([]PaymentDTO, error) {
	rows, err := NewRepository(s.db.DB()).ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, db.Classify(err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, paymentFromModel(p))
	}
	return out, nil
}

func (s *service) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]SubscriptionDTO, error) {
	rows, err := NewRepository(s.db.DB()).ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, db.Classify(err, "list subscriptions")
	}
	now := s.now()
	out := make([]SubscriptionDTO, 0, len(rows))
	for _, sub := range rows {
		out = append(out, subscriptionFromModel(sub, now))
	}
	return out, nil
}

// replayed reports the current memorial state for an already applied payment.
func (s *service) replayed(ctx context.Context, payment *models.Payment) (*ConfirmResult, error) {
	out := &ConfirmResult{
		PaymentID:  payment.ID,
		MemorialID: payment.MemorialID,
		Status:     string(enums.PaymentStatusCompleted),
		Replayed:   true,
	}
	if payment.MemorialID == nil {
		return out, nil
	}
	m, err := memorials.NewRepository(s.db.DB()).FindByID(ctx, *payment.MemorialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return nil, db.Classify(err, "load memorial")
	}
	ent := entitlementOf(m)
	out.Tier = ent.Tier
	out.State = lifecycle.Derive(ent, s.now())
	out.ExpiresAt = ent.ExpiresAt
	out.CanEdit = &ent.CanEdit
	return out, nil
}

func (s *service) successURL(paymentID uuid.UUID) string {
	q := url.Values{}
	q.Set("paymentId", paymentID.String())
	return s.baseURL + "/payment/success?" + q.Encode()
}

func (s *service) countConfirmation(outcome string) {
	if s.metrics != nil {
		s.metrics.IncConfirmation(outcome)
	}
}

func entitlementOf(m *models.Memorial) lifecycle.Entitlement {
	return lifecycle.Entitlement{Tier: m.Tier, ExpiresAt: m.ExpiresAt, CanEdit: m.CanEdit}
}
