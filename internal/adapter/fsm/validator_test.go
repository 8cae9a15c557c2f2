package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/listingiq/internal/adapter/fsm"
	"github.com/neomorfeo/listingiq/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		if err := v.Validate(ctx, tr.Src, tr.Dst); err != nil {
			t.Errorf("Validate(%q, %q) unexpected error: %v", tr.Src, tr.Dst, err)
		}
	}
}

func TestValidator_AgreesWithDomainRules(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			err := v.Validate(ctx, from, to)
			legal := domain.IsLegalTransition(from, to)
			if legal && err != nil {
				t.Errorf("Validate(%q, %q) = %v, want nil", from, to, err)
			}
			if !legal && err == nil {
				t.Errorf("Validate(%q, %q) = nil, want illegal transition", from, to)
			}
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New()

	// Nothing leaves SOLD.
	err := v.Validate(context.Background(), domain.StatusSold, domain.StatusActive)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if trErr.Kind != domain.KindIllegalTransition {
		t.Errorf("kind = %q, want %q", trErr.Kind, domain.KindIllegalTransition)
	}
	if trErr.From != domain.StatusSold || trErr.To != domain.StatusActive {
		t.Errorf("edge = %q -> %q, want SOLD -> ACTIVE", trErr.From, trErr.To)
	}
}

func TestValidator_SelfLoops(t *testing.T) {
	v := adapter.New()

	for _, s := range domain.Statuses {
		if err := v.Validate(context.Background(), s, s); err != nil {
			t.Errorf("Validate(%q, %q) unexpected error: %v", s, s, err)
		}
	}
}

func TestValidator_UnknownTarget(t *testing.T) {
	v := adapter.New()

	err := v.Validate(context.Background(), domain.StatusActive, domain.Status("ARCHIVED"))
	if domain.KindOf(err) != domain.KindIllegalTransition {
		t.Errorf("KindOf = %q, want %q", domain.KindOf(err), domain.KindIllegalTransition)
	}
}
