package enums

// PlanType is a purchasable memorial plan.
type PlanType string

const (
	PlanTypeAnnual         PlanType = "annual"
	PlanTypeLifetime       PlanType = "lifetime"
	PlanTypeLifetimeNoEdit PlanType = "lifetime-no-edit"
)

var planTypes = []PlanType{PlanTypeAnnual, PlanTypeLifetime, PlanTypeLifetimeNoEdit}

func (v PlanType) String() string { return string(v) }
func (v PlanType) IsValid() bool  { _, err := ParsePlanType(string(v)); return err == nil }

// Permanent reports whether the plan clears the memorial expiry.
func (v PlanType) Permanent() bool {
	return v == PlanTypeLifetime || v == PlanTypeLifetimeNoEdit
}

func ParsePlanType(raw string) (PlanType, error) { return parse(planTypes, "plan type", raw) }

// PlanStatus tracks an active-plan record.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusExpired   PlanStatus = "expired"
	PlanStatusCancelled PlanStatus = "cancelled"
)

var planStatuses = []PlanStatus{PlanStatusActive, PlanStatusExpired, PlanStatusCancelled}

func (v PlanStatus) String() string { return string(v) }
func (v PlanStatus) IsValid() bool  { _, err := ParsePlanStatus(string(v)); return err == nil }

func ParsePlanStatus(raw string) (PlanStatus, error) {
	return parse(planStatuses, "plan status", raw)
}

// PaymentStatus tracks a billing record through confirmation.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed}

func (v PaymentStatus) String() string { return string(v) }
func (v PaymentStatus) IsValid() bool  { _, err := ParsePaymentStatus(string(v)); return err == nil }

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return parse(paymentStatuses, "payment status", raw)
}
