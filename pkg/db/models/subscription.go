package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

// SubscriptionPaymentIndex guarantees one plan record per completed payment.
const SubscriptionPaymentIndex = "subscriptions_payment_uniq"

// Subscription is an active-plan record created by a confirmed annual payment.
type Subscription struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	MemorialID uuid.UUID        `gorm:"column:memorial_id;type:uuid;not null;index"`
	PaymentID  uuid.UUID        `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:subscriptions_payment_uniq"`
	PlanType   enums.PlanType   `gorm:"column:plan_type;not null"`
	Status     enums.PlanStatus `gorm:"column:status;not null"`
	StartsAt   time.Time        `gorm:"column:starts_at;not null"`
	EndsAt     *time.Time       `gorm:"column:ends_at"`
	AutoRenew  bool             `gorm:"column:auto_renew;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
