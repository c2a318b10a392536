package enums

import "testing"

func TestParsePlanType(t *testing.T) {
	got, err := ParsePlanType("lifetime-no-edit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != PlanTypeLifetimeNoEdit || !got.Permanent() {
		t.Fatalf("unexpected plan %q", got)
	}
	if PlanTypeAnnual.Permanent() {
		t.Fatal("annual plan is not permanent")
	}
	if _, err := ParsePlanType("monthly"); err == nil {
		t.Fatal("expected error for unknown plan")
	}
}

func TestTierValidity(t *testing.T) {
	for _, tier := range []Tier{TierTemporary, TierActive, TierPermanent} {
		if !tier.IsValid() {
			t.Fatalf("expected %q to be valid", tier)
		}
	}
	if Tier("expired").IsValid() {
		t.Fatal("expired is derived, not stored")
	}
}

func TestParseSystemRole(t *testing.T) {
	if role, err := ParseSystemRole("admin"); err != nil || role != SystemRoleAdmin {
		t.Fatalf("expected admin role, got %q (%v)", role, err)
	}
	if _, err := ParseSystemRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseErrorsNameTheKind(t *testing.T) {
	_, err := ParsePaymentStatus("refunded")
	if err == nil || err.Error() != `invalid payment status "refunded"` {
		t.Fatalf("unexpected error %v", err)
	}
	if MediaKind("IMAGE").IsValid() {
		t.Fatal("media kinds are case sensitive")
	}
}
