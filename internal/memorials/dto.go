package memorials

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/internal/media"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	"github.com/angelmondragon/memorial-backend/pkg/pagination"
	"github.com/angelmondragon/memorial-backend/pkg/types"
)

const (
	maxNameLen        = 200
	maxBiographyLen   = 10000
	maxHeroSummaryLen = 500
	maxDateLen        = 50
	maxEventYearLen   = 20
	maxEventTitleLen  = 200
	maxEventDescLen   = 2000
	maxListFieldLen   = 2000
)

// ContentInput drives both creation and editing. Nil fields are left as they
// are on edit and default to empty on create.
type ContentInput struct {
	Name                *string
	HebrewName          *string
	BirthDate           *string
	DeathDate           *string
	Biography           *string
	HeroSummary         *string
	Timeline            *dbtypes.Timeline
	TehilimChapters     *dbtypes.CSVList
	Mishnayot           *dbtypes.CSVList
	BackgroundMusicPath *string
	HeroImageIndex      *int

	Files  []media.File
	Header *media.File
}

// ParseTimeline decodes a JSON timeline payload, trimming entries, dropping
// blank ones and keeping at most the first twenty.
func ParseTimeline(raw string) (dbtypes.Timeline, error) {
	out := dbtypes.Timeline{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	var entries []dbtypes.TimelineEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	return NormalizeTimeline(entries), nil
}

// NormalizeTimeline applies the stored shape rules to decoded entries.
func NormalizeTimeline(entries []dbtypes.TimelineEntry) dbtypes.Timeline {
	if len(entries) > dbtypes.MaxTimelineEntries {
		entries = entries[:dbtypes.MaxTimelineEntries]
	}
	out := make(dbtypes.Timeline, 0, len(entries))
	for _, e := range entries {
		clean := dbtypes.TimelineEntry{
			Year:        types.ClipText(e.Year, maxEventYearLen),
			Title:       types.ClipText(e.Title, maxEventTitleLen),
			Description: types.ClipText(e.Description, maxEventDescLen),
		}
		if clean.Empty() {
			continue
		}
		out = append(out, clean)
	}
	return out
}

// MemorialDTO is the public shape of a memorial.
type MemorialDTO struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	HebrewName      string           `json:"hebrewName"`
	BirthDate       string           `json:"birthDate"`
	DeathDate       string           `json:"deathDate"`
	Biography       string           `json:"biography"`
	Images          []string         `json:"images"`
	Videos          []string         `json:"videos"`
	BackgroundMusic string           `json:"backgroundMusic"`
	HeroImage       string           `json:"heroImage"`
	HeroSummary     string           `json:"heroSummary"`
	Timeline        dbtypes.Timeline `json:"timeline"`
	TehilimChapters []string         `json:"tehilimChapters"`
	Mishnayot       []string         `json:"mishnayot"`
	QRCodePath      string           `json:"qrCodePath"`
	URL             string           `json:"url,omitempty"`
	Tier            enums.Tier       `json:"tier"`
	State           lifecycle.State  `json:"state"`
	ExpiresAt       *time.Time       `json:"expiresAt"`
	CanEdit         bool             `json:"canEdit"`
	OwnerID         *uuid.UUID       `json:"ownerId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// FromModel maps a stored memorial with its state derived at now.
func FromModel(m *models.Memorial, now time.Time) MemorialDTO {
	dto := MemorialDTO{
		ID:              m.ID,
		Name:            m.Name,
		HebrewName:      deref(m.HebrewName),
		BirthDate:       deref(m.BirthDate),
		DeathDate:       deref(m.DeathDate),
		Biography:       m.Biography,
		Images:          nonNil(m.Images),
		Videos:          nonNil(m.Videos),
		BackgroundMusic: deref(m.BackgroundMusic),
		HeroImage:       deref(m.HeroImage),
		HeroSummary:     deref(m.HeroSummary),
		Timeline:        m.Timeline,
		TehilimChapters: nonNil(m.TehilimChapters),
		Mishnayot:       nonNil(m.Mishnayot),
		QRCodePath:      deref(m.QRCodePath),
		Tier:            m.Tier,
		State:           lifecycle.Derive(entitlementOf(m), now),
		ExpiresAt:       m.ExpiresAt,
		CanEdit:         m.CanEdit,
		OwnerID:         m.OwnerID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if dto.Timeline == nil {
		dto.Timeline = dbtypes.Timeline{}
	}
	return dto
}

// CreateResult is returned after a memorial is created. Redirect points the
// client at the plan selection page.
type CreateResult struct {
	Memorial MemorialDTO `json:"memorial"`
	Redirect string      `json:"redirect"`
}

// MediaResult reports the media lists after an append.
type MediaResult struct {
	Images          []string `json:"images"`
	Videos          []string `json:"videos"`
	BackgroundMusic string   `json:"backgroundMusic"`
}

// ListResult carries a page or the full list of visible memorials.
type ListResult struct {
	Memorials  []MemorialDTO    `json:"memorials"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
}

// OwnedMemorialDTO is one row of the owner's management list.
type OwnedMemorialDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	HeroImage string          `json:"heroImage"`
	Tier      enums.Tier      `json:"tier"`
	State     lifecycle.State `json:"state"`
	ExpiresAt *time.Time      `json:"expiresAt"`
	CanEdit   bool            `json:"canEdit"`
	CreatedAt time.Time       `json:"createdAt"`
}

func entitlementOf(m *models.Memorial) lifecycle.Entitlement {
	return lifecycle.Entitlement{Tier: m.Tier, ExpiresAt: m.ExpiresAt, CanEdit: m.CanEdit}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil[T ~[]string](list T) []string {
	if list == nil {
		return []string{}
	}
	return []string(list)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
