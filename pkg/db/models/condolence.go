package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Condolence is a visitor message left on a memorial.
type Condolence struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	MemorialID uuid.UUID `gorm:"column:memorial_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	Message    string    `gorm:"column:message;not null"`
	Approved   bool      `gorm:"column:approved;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Condolence) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
