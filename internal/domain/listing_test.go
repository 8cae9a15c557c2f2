package domain_test

import (
	"errors"
	"testing"

	"github.com/neomorfeo/listingiq/internal/domain"
)

func TestIsLegalTransition_MatchesEdgeSet(t *testing.T) {
	legal := map[[2]domain.Status]bool{
		{domain.StatusActive, domain.StatusHidden}: true,
		{domain.StatusHidden, domain.StatusActive}: true,
		{domain.StatusActive, domain.StatusSold}:   true,
		{domain.StatusHidden, domain.StatusSold}:   true,
		{domain.StatusActive, domain.StatusActive}: true,
		{domain.StatusHidden, domain.StatusHidden}: true,
		{domain.StatusSold, domain.StatusSold}:     true,
	}

	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			want := legal[[2]domain.Status{from, to}]
			if got := domain.IsLegalTransition(from, to); got != want {
				t.Errorf("IsLegalTransition(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsLegalTransition_SoldIsTerminal(t *testing.T) {
	for _, to := range domain.Statuses {
		if to == domain.StatusSold {
			continue
		}
		if domain.IsLegalTransition(domain.StatusSold, to) {
			t.Errorf("unexpected edge SOLD -> %q", to)
		}
	}
}

func TestTransitions_EventLeadsToItsStatus(t *testing.T) {
	for _, tr := range domain.Transitions {
		if got := domain.EventFor(tr.Dst); got != tr.Event {
			t.Errorf("EventFor(%q) = %q, but table uses %q", tr.Dst, got, tr.Event)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range domain.Statuses {
		got, err := domain.ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%q) error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}

	for _, raw := range []string{"", "active", "DELETED", "PENDING"} {
		if _, err := domain.ParseStatus(raw); !errors.Is(err, domain.ErrInvalidStatus) {
			t.Errorf("ParseStatus(%q) error = %v, want ErrInvalidStatus", raw, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	valid := []string{"USER", "SELLER", "ADMIN", "MANAGER_ADMIN", "OWNER_ADMIN"}
	for _, raw := range valid {
		if _, err := domain.ParseRole(raw); err != nil {
			t.Errorf("ParseRole(%q) error: %v", raw, err)
		}
	}

	for _, raw := range []string{"", "admin", "SUPERUSER"} {
		if _, err := domain.ParseRole(raw); !errors.Is(err, domain.ErrInvalidRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrInvalidRole", raw, err)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := domain.Describe(domain.StatusSold, domain.StatusSold); got != "Keep listing sold" {
		t.Errorf("Describe(SOLD, SOLD) = %q", got)
	}
	if got := domain.Describe(domain.StatusActive, domain.StatusSold); got != "Mark listing as sold (final)" {
		t.Errorf("Describe(ACTIVE, SOLD) = %q", got)
	}
}

func TestSaleDetails_IsZero(t *testing.T) {
	if !(domain.SaleDetails{}).IsZero() {
		t.Error("empty SaleDetails should be zero")
	}
	if (domain.SaleDetails{BuyerInfo: "J. Doe"}).IsZero() {
		t.Error("SaleDetails with buyer info should not be zero")
	}
}
