// Package lifecycle owns a memorial's tier, expiry and edit permission and the
// transitions between them. Everything here is pure; callers persist results.
package lifecycle

import (
	"time"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

const (
	DefaultGraceWindow = 48 * time.Hour
	DefaultAnnualTerm  = 365 * 24 * time.Hour
)

// State is the derived, read-time view of an entitlement.
type State string

const (
	StateTemporary         State = "temporary"
	StateActive            State = "active"
	StatePermanentEditable State = "permanent-editable"
	StatePermanentLocked   State = "permanent-locked"
	StateExpired           State = "expired"
)

// Entitlement is the lifecycle-owned slice of a memorial.
type Entitlement struct {
	Tier      enums.Tier
	ExpiresAt *time.Time
	CanEdit   bool
}

// Transition records one applied change.
type Transition struct {
	From   State
	To     State
	Plan   enums.PlanType
	Result Entitlement
}

// Engine applies tier rules with configured durations.
type Engine struct {
	grace      time.Duration
	annualTerm time.Duration
}

func NewEngine(cfg config.LifecycleConfig) *Engine {
	e := &Engine{grace: cfg.GraceWindow, annualTerm: cfg.AnnualTerm}
	if e.grace <= 0 {
		e.grace = DefaultGraceWindow
	}
	if e.annualTerm <= 0 {
		e.annualTerm = DefaultAnnualTerm
	}
	return e
}

// GraceWindow reports how long a new memorial stays visible unpaid.
func (e *Engine) GraceWindow() time.Duration {
	return e.grace
}

// Initial is the entitlement stamped on a freshly created memorial.
func (e *Engine) Initial(createdAt time.Time) Entitlement {
	expiry := createdAt.UTC().Add(e.grace)
	return Entitlement{
		Tier:      enums.TierTemporary,
		ExpiresAt: &expiry,
		CanEdit:   true,
	}
}

// Visible reports whether a memorial may be served to normal readers. A
// temporary record stays visible up to and including its expiry instant; one
// without an expiry is treated as already expired.
func Visible(tier enums.Tier, expiresAt *time.Time, now time.Time) bool {
	if tier != enums.TierTemporary {
		return true
	}
	if expiresAt == nil {
		return false
	}
	return !now.After(*expiresAt)
}

// Visible is the method form of the package-level check.
func (ent Entitlement) Visible(now time.Time) bool {
	return Visible(ent.Tier, ent.ExpiresAt, now)
}

// Derive maps an entitlement to its read-time state.
func Derive(ent Entitlement, now time.Time) State {
	switch ent.Tier {
	case enums.TierTemporary:
		if !ent.Visible(now) {
			return StateExpired
		}
		return StateTemporary
	case enums.TierActive:
		return StateActive
	case enums.TierPermanent:
		if ent.CanEdit {
			return StatePermanentEditable
		}
		return StatePermanentLocked
	default:
		return StateExpired
	}
}

// Apply computes the entitlement after a confirmed payment for plan.
//
//	temporary -> active               annual
//	temporary -> permanent (editable) lifetime
//	temporary -> permanent (locked)   lifetime-no-edit
//	active    -> active               annual renewal, extends the current term
//	active    -> permanent            lifetime upgrade
//
// Permanent is terminal. No path leads back to temporary.
func (e *Engine) Apply(current Entitlement, plan enums.PlanType, now time.Time) (Transition, error) {
	now = now.UTC()
	from := Derive(current, now)

	if !plan.IsValid() {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan type").
			WithDetails(map[string]any{"planType": string(plan)})
	}

	switch current.Tier {
	case enums.TierTemporary, enums.TierActive:
	case enums.TierPermanent:
		return Transition{}, pkgerrors.New(pkgerrors.CodeStateConflict, "memorial is already permanent").
			WithDetails(map[string]any{"state": string(from), "planType": string(plan)})
	default:
		return Transition{}, pkgerrors.New(pkgerrors.CodeStateConflict, "memorial has an unknown tier").
			WithDetails(map[string]any{"tier": string(current.Tier)})
	}

	var next Entitlement
	switch plan {
	case enums.PlanTypeAnnual:
		start := now
		if current.Tier == enums.TierActive && current.ExpiresAt != nil && current.ExpiresAt.After(now) {
			start = current.ExpiresAt.UTC()
		}
		expiry := start.Add(e.annualTerm)
		next = Entitlement{Tier: enums.TierActive, ExpiresAt: &expiry, CanEdit: true}
	case enums.PlanTypeLifetime:
		next = Entitlement{Tier: enums.TierPermanent, ExpiresAt: nil, CanEdit: true}
	case enums.PlanTypeLifetimeNoEdit:
		next = Entitlement{Tier: enums.TierPermanent, ExpiresAt: nil, CanEdit: false}
	}

	return Transition{
		From:   from,
		To:     Derive(next, now),
		Plan:   plan,
		Result: next,
	}, nil
}

// PlanWindow returns the start and end of the plan record a confirmed payment
// creates. Permanent plans have no end.
func PlanWindow(t Transition, now time.Time) (time.Time, *time.Time) {
	start := now.UTC()
	if t.Plan != enums.PlanTypeAnnual || t.Result.ExpiresAt == nil {
		return start, nil
	}
	end := *t.Result.ExpiresAt
	return start, &end
}
