package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CandleVisitorIndex is the unique (memorial_id, visitor_id) index name.
const CandleVisitorIndex = "candles_memorial_visitor_uniq"

// Candle is a virtual candle lit by a visitor; one per visitor key per memorial.
type Candle struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	MemorialID uuid.UUID `gorm:"column:memorial_id;type:uuid;not null;uniqueIndex:candles_memorial_visitor_uniq,priority:1"`
	VisitorID  string    `gorm:"column:visitor_id;not null;uniqueIndex:candles_memorial_visitor_uniq,priority:2"`
	LitBy      string    `gorm:"column:lit_by;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Candle) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
