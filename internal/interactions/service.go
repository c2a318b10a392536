// Package interactions handles visitor condolences and virtual candles.
package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/types"
	"github.com/angelmondragon/memorial-backend/pkg/visibility"
)

type interactionRepository interface {
	CreateCondolence(ctx context.Context, c *models.Condolence) error
	ListApprovedCondolences(ctx context.Context, memorialID uuid.UUID) ([]models.Condolence, error)
	CreateCandle(ctx context.Context, c *models.Candle) error
	HasCandle(ctx context.Context, memorialID uuid.UUID, visitorID string) (bool, error)
	ListCandles(ctx context.Context, memorialID uuid.UUID) ([]models.Candle, error)
}

type memorialFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Memorial, error)
}

type interactionMetrics interface {
	IncInteraction(kind, outcome string)
}

// Service exposes visitor interaction operations.
type Service interface {
	AddCondolence(ctx context.Context, memorialID uuid.UUID, name, message string) (*CondolenceDTO, error)
	ListCondolences(ctx context.Context, memorialID uuid.UUID) ([]CondolenceDTO, error)
	LightCandle(ctx context.Context, memorialID uuid.UUID, visitorID, litBy string) (*CandlesResult, error)
	ListCandles(ctx context.Context, memorialID uuid.UUID, visitorID string) (*CandlesResult, error)
}

// ServiceParams wires the interactions service.
type ServiceParams struct {
	Repo      interactionRepository
	Memorials memorialFinder
	Metrics   interactionMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	repo      interactionRepository
	memorials memorialFinder
	metrics   interactionMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the interactions service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("interactions repository required")
	}
	if params.Memorials == nil {
		return nil, fmt.Errorf("memorial finder required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:      params.Repo,
		memorials: params.Memorials,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) AddCondolence(ctx context.Context, memorialID uuid.UUID, name, message string) (*CondolenceDTO, error) {
	name = types.ClipText(name, maxCondolenceNameLen)
	message = types.ClipText(message, maxCondolenceMessageLen)
	if name == "" || message == "" {
		details := map[string]string{}
		if name == "" {
			details["name"] = "is required"
		}
		if message == "" {
			details["message"] = "is required"
		}
		s.record("condolence", "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "שם והודעה נדרשים").WithDetails(details)
	}

	if err := s.ensureVisible(ctx, memorialID); err != nil {
		s.record("condolence", "rejected")
		return nil, err
	}

	c := &models.Condolence{
		MemorialID: memorialID,
		Name:       name,
		Message:    message,
		Approved:   true,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateCondolence(ctx, c); err != nil {
		s.record("condolence", "error")
		return nil, db.Classify(err, "failed to save condolence")
	}
	s.record("condolence", "created")
	dto := condolenceFromModel(c)
	return &dto, nil
}

func (s *service) ListCondolences(ctx context.Context, memorialID uuid.UUID) ([]CondolenceDTO, error) {
	if err := s.ensureVisible(ctx, memorialID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListApprovedCondolences(ctx, memorialID)
	if err != nil {
		return nil, db.Classify(err, "failed to load condolences")
	}
	out := make([]CondolenceDTO, 0, len(rows))
	for i := range rows {
		out = append(out, condolenceFromModel(&rows[i]))
	}
	return out, nil
}

// LightCandle records at most one candle per visitor key. A repeat attempt
// fails with a duplicate-action error carrying alreadyLit and the current count.
func (s *service) LightCandle(ctx context.Context, memorialID uuid.UUID, visitorID, litBy string) (*CandlesResult, error) {
	visitorID = types.ClipText(visitorID, maxVisitorIDLen)
	if visitorID == "" {
		s.record("candle", "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "נדרש מזהה מבקר").
			WithDetails(map[string]string{"visitorId": "is required"})
	}
	litBy = types.ClipText(litBy, maxLitByLen)
	if litBy == "" {
		litBy = DefaultLitBy
	}

	if err := s.ensureVisible(ctx, memorialID); err != nil {
		s.record("candle", "rejected")
		return nil, err
	}

	exists, err := s.repo.HasCandle(ctx, memorialID, visitorID)
	if err != nil {
		return nil, db.Classify(err, "failed to check candles")
	}
	if exists {
		return nil, s.alreadyLit(ctx, memorialID)
	}

	candle := &models.Candle{
		MemorialID: memorialID,
		VisitorID:  visitorID,
		LitBy:      litBy,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateCandle(ctx, candle); err != nil {
		// The unique index catches a concurrent attempt that passed the check above.
		if db.IsUniqueViolation(err, "") {
			if s.logg != nil {
				s.logg.Debug(s.logg.WithMemorialID(ctx, memorialID.String()), "candle.duplicate_race")
			}
			return nil, s.alreadyLit(ctx, memorialID)
		}
		s.record("candle", "error")
		return nil, db.Classify(err, "failed to light candle")
	}
	s.record("candle", "created")

	result, err := s.candles(ctx, memorialID)
	if err != nil {
		return nil, err
	}
	result.HasLitCandle = true
	return result, nil
}

func (s *service) ListCandles(ctx context.Context, memorialID uuid.UUID, visitorID string) (*CandlesResult, error) {
	if err := s.ensureVisible(ctx, memorialID); err != nil {
		return nil, err
	}
	result, err := s.candles(ctx, memorialID)
	if err != nil {
		return nil, err
	}
	if visitorID = types.ClipText(visitorID, maxVisitorIDLen); visitorID != "" {
		lit, err := s.repo.HasCandle(ctx, memorialID, visitorID)
		if err != nil {
			return nil, db.Classify(err, "failed to check candles")
		}
		result.HasLitCandle = lit
	}
	return result, nil
}

func (s *service) candles(ctx context.Context, memorialID uuid.UUID) (*CandlesResult, error) {
	rows, err := s.repo.ListCandles(ctx, memorialID)
	if err != nil {
		return nil, db.Classify(err, "failed to load candles")
	}
	return &CandlesResult{Candles: candlesFromModels(rows), CandleCount: len(rows)}, nil
}

func (s *service) alreadyLit(ctx context.Context, memorialID uuid.UUID) error {
	s.record("candle", "duplicate")
	details := map[string]any{"alreadyLit": true}
	if current, err := s.candles(ctx, memorialID); err == nil {
		details["candleCount"] = current.CandleCount
	}
	return pkgerrors.New(pkgerrors.CodeDuplicateAction, "כבר הדלקת נר זיכרון לדף זה").WithDetails(details)
}

func (s *service) ensureVisible(ctx context.Context, memorialID uuid.UUID) error {
	m, err := s.memorials.FindByID(ctx, memorialID)
	if err != nil {
		return db.Classify(err, "Memorial not found")
	}
	return visibility.EnsureInteractable(m, s.now())
}

func (s *service) record(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.IncInteraction(kind, outcome)
	}
}
