package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

// Memorial is one memorial page. Tier, ExpiresAt and CanEdit are owned by the
// lifecycle engine; everything else is content.
type Memorial struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID         *uuid.UUID         `gorm:"column:owner_id;type:uuid;index"`
	Name            string             `gorm:"column:name;not null"`
	HebrewName      *string            `gorm:"column:hebrew_name"`
	BirthDate       *string            `gorm:"column:birth_date"`
	DeathDate       *string            `gorm:"column:death_date"`
	Biography       string             `gorm:"column:biography;not null"`
	Images          dbtypes.StringList `gorm:"column:images;type:jsonb;not null"`
	Videos          dbtypes.StringList `gorm:"column:videos;type:jsonb;not null"`
	BackgroundMusic *string            `gorm:"column:background_music"`
	HeroImage       *string            `gorm:"column:hero_image"`
	HeroSummary     *string            `gorm:"column:hero_summary"`
	Timeline        dbtypes.Timeline   `gorm:"column:timeline;type:jsonb;not null"`
	TehilimChapters dbtypes.CSVList    `gorm:"column:tehilim_chapters;not null"`
	Mishnayot       dbtypes.CSVList    `gorm:"column:mishnayot;not null"`
	QRCodePath      *string            `gorm:"column:qr_code_path"`
	Tier            enums.Tier         `gorm:"column:tier;not null"`
	ExpiresAt       *time.Time         `gorm:"column:expires_at"`
	CanEdit         bool               `gorm:"column:can_edit;not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Memorial) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether userID owns the memorial.
func (m *Memorial) OwnedBy(userID uuid.UUID) bool {
	return m != nil && m.OwnerID != nil && *m.OwnerID == userID
}
