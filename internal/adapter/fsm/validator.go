package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events converts domain.Transitions into looplab/fsm EventDesc format.
// Transitions sharing an event and destination collapse into one EventDesc
// with several sources (e.g. "sell" from ACTIVE, HIDDEN and SOLD).
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range domain.Transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// looplab/fsm tracks its current state internally, so every Validate call
// builds a short-lived machine seeded with the listing's stored status.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Validate fires the event leading into `to` on a machine sitting at `from`.
// A self-loop fires without changing state, which looplab/fsm reports as
// NoTransitionError; that is a legal no-op here.
func (v *Validator) Validate(ctx context.Context, from, to domain.Status) error {
	event := domain.EventFor(to)
	machine := loopfsm.NewFSM(string(from), events, nil)

	err := machine.Event(ctx, string(event))
	if err == nil {
		return nil
	}

	var noTransition loopfsm.NoTransitionError
	if errors.As(err, &noTransition) && machine.Current() == string(to) {
		return nil
	}

	var invalidEvent loopfsm.InvalidEventError
	var unknownEvent loopfsm.UnknownEventError
	if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
		return &domain.TransitionError{
			Kind: domain.KindIllegalTransition,
			From: from,
			To:   to,
		}
	}
	return err
}
