package grid

import (
	"context"
	"fmt"

	"github.com/theakshaypant/gridcal/internal/core"
)

// EffectKind is the store call an effect stands for.
type EffectKind int

const (
	EffectCreate EffectKind = iota
	EffectUpdate
	EffectDelete
	EffectToggle
)

func (k EffectKind) String() string {
	switch k {
	case EffectUpdate:
		return "update"
	case EffectDelete:
		return "delete"
	case EffectToggle:
		return "toggle"
	default:
		return "create"
	}
}

// Effect is a store write produced by the surface. The local state already
// reflects it when it is returned.
type Effect struct {
	Kind EffectKind
	// EventID is the draft id for creates and the event id otherwise.
	EventID string
	Payload core.EventPayload
}

// Result is a completed effect.
type Result struct {
	Effect Effect
	// Event is the stored event for create, update and toggle.
	Event *core.Event
}

// Apply executes eff against store. It never retries; failures are returned
// to the caller unchanged apart from wrapping, so core.ErrUnauthorized can
// still be matched with errors.Is.
func Apply(ctx context.Context, store core.EventStore, eff Effect) (Result, error) {
	res := Result{Effect: eff}
	switch eff.Kind {
	case EffectCreate:
		ev, err := store.Create(ctx, eff.Payload)
		if err != nil {
			return res, fmt.Errorf("create event: %w", err)
		}
		res.Event = &ev
	case EffectUpdate:
		ev, err := store.Update(ctx, eff.EventID, eff.Payload)
		if err != nil {
			return res, fmt.Errorf("update event %s: %w", eff.EventID, err)
		}
		res.Event = &ev
	case EffectDelete:
		if err := store.Delete(ctx, eff.EventID); err != nil {
			return res, fmt.Errorf("delete event %s: %w", eff.EventID, err)
		}
	case EffectToggle:
		ev, err := store.ToggleComplete(ctx, eff.EventID)
		if err != nil {
			return res, fmt.Errorf("toggle event %s: %w", eff.EventID, err)
		}
		res.Event = ev
	default:
		return res, fmt.Errorf("unknown effect %d", eff.Kind)
	}
	return res, nil
}
