// Package visibility is the access gate in front of memorial reads and writes.
package visibility

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

// Actor is the authenticated caller. A nil *Actor is an anonymous visitor.
type Actor struct {
	UserID uuid.UUID
	Role   enums.SystemRole
}

// IsAdmin reports whether the actor carries the admin system role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == enums.SystemRoleAdmin
}

// ExpiredError builds the signal returned for a lapsed temporary memorial.
func ExpiredError(m *models.Memorial) error {
	details := map[string]any{"expired": true}
	if m != nil && m.ExpiresAt != nil {
		details["expiresAt"] = m.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return pkgerrors.New(pkgerrors.CodeExpired, "This memorial has expired").WithDetails(details)
}

// EnsureReadable admits any caller to a visible memorial.
func EnsureReadable(m *models.Memorial, now time.Time) error {
	if m == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Memorial not found")
	}
	if !lifecycle.Visible(m.Tier, m.ExpiresAt, now) {
		return ExpiredError(m)
	}
	return nil
}

// EnsureInteractable guards condolences and candles: anyone may write while
// the memorial is visible.
func EnsureInteractable(m *models.Memorial, now time.Time) error {
	return EnsureReadable(m, now)
}

// EnsureEditable guards content writes. Only the owner may edit, and only
// while the stored edit flag allows it. Memorials created anonymously have no
// owner and are therefore never editable through the API.
func EnsureEditable(m *models.Memorial, actor *Actor, now time.Time) error {
	if err := EnsureReadable(m, now); err != nil {
		return err
	}
	if actor == nil || actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !m.OwnedBy(actor.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "You do not have permission to edit this memorial")
	}
	if !m.CanEdit {
		return pkgerrors.New(pkgerrors.CodeForbidden, "This memorial can no longer be edited").
			WithDetails(map[string]any{"canEdit": false})
	}
	return nil
}

// EnsureDeletable admits only administrators. Expired memorials may still be removed.
func EnsureDeletable(m *models.Memorial, actor *Actor) error {
	if m == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Memorial not found")
	}
	if actor == nil || actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Admin access required")
	}
	return nil
}

// EnsurePayable guards plan purchases. Expired memorials may be paid for, and
// an anonymous memorial may be claimed by whoever pays for it.
func EnsurePayable(m *models.Memorial, actor *Actor) error {
	if m == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Memorial not found")
	}
	if actor == nil || actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if m.OwnerID == nil || m.OwnedBy(actor.UserID) || actor.IsAdmin() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "You do not have permission to purchase a plan for this memorial")
}
