package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

// Payment is a billing record: one checkout attempt for a plan.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	MemorialID      *uuid.UUID          `gorm:"column:memorial_id;type:uuid;index"`
	PlanType        enums.PlanType      `gorm:"column:plan_type;not null"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	Currency        string              `gorm:"column:currency;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;not null"`
	ExternalOrderID *string             `gorm:"column:external_order_id;uniqueIndex"`
	TransactionID   *string             `gorm:"column:transaction_id"`
	CheckoutURL     *string             `gorm:"column:checkout_url"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	CompletedAt     *time.Time          `gorm:"column:completed_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
