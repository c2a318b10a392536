package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

// Plan is one purchasable memorial plan.
type Plan struct {
	Type      enums.PlanType  `json:"type"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Permanent bool            `json:"permanent"`
	CanEdit   bool            `json:"canEdit"`
}

// AmountCents converts the price to minor units.
func (p Plan) AmountCents() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}

// Catalog holds the fixed plan prices.
type Catalog struct {
	plans map[enums.PlanType]Plan
	order []enums.PlanType
}

// NewCatalog parses configured prices. Every price must be a positive decimal.
func NewCatalog(cfg config.PlansConfig, currency string) (*Catalog, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "ILS"
	}
	entries := []struct {
		plan    enums.PlanType
		name    string
		raw     string
		canEdit bool
	}{
		{enums.PlanTypeAnnual, "שמירה שנתית", cfg.AnnualPrice, true},
		{enums.PlanTypeLifetime, "הנצחה לכל החיים (עם עריכה)", cfg.LifetimePrice, true},
		{enums.PlanTypeLifetimeNoEdit, "הנצחה לכל החיים (בלי עריכה)", cfg.LifetimeNoEditPrice, false},
	}

	c := &Catalog{plans: make(map[enums.PlanType]Plan, len(entries))}
	for _, e := range entries {
		price, err := decimal.NewFromString(strings.TrimSpace(e.raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s price %q: %w", e.plan, e.raw, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("%s price must be positive", e.plan)
		}
		c.plans[e.plan] = Plan{
			Type:      e.plan,
			Name:      e.name,
			Price:     price,
			Currency:  currency,
			Permanent: e.plan.Permanent(),
			CanEdit:   e.canEdit,
		}
		c.order = append(c.order, e.plan)
	}
	return c, nil
}

// List returns the plans in display order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, p := range c.order {
		out = append(out, c.plans[p])
	}
	return out
}

// Lookup resolves a raw plan type.
func (c *Catalog) Lookup(raw string) (Plan, error) {
	plan, err := enums.ParsePlanType(strings.TrimSpace(raw))
	if err != nil {
		return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan type").
			WithDetails(map[string]any{"planType": raw})
	}
	p, ok := c.plans[plan]
	if !ok {
		return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan type").
			WithDetails(map[string]any{"planType": raw})
	}
	return p, nil
}

// CheckAmount rejects a client-quoted amount that differs from the catalog.
// A nil amount is accepted.
func (p Plan) CheckAmount(amount *decimal.Decimal) error {
	if amount == nil || amount.Equal(p.Price) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "amount does not match the plan price").
		WithDetails(map[string]any{"planType": string(p.Type), "price": p.Price.String()})
}
