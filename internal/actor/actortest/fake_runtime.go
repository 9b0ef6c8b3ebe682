// Package actortest holds fakes for exercising actors in tests.
package actortest

import (
	"context"
	"sync"

	"github.com/bhandras/zkdash/internal/actor"
)

// FakeRuntime records every effect batch it is handed. OnEffect, when set,
// runs for each effect and may emit follow-up inputs synchronously.
type FakeRuntime struct {
	OnEffect func(ctx context.Context, eff actor.Effect, emit func(actor.Input))

	mu      sync.Mutex
	batches [][]actor.Effect
	stops   int
}

var _ actor.Runtime = (*FakeRuntime)(nil)

// HandleEffects implements actor.Runtime.
func (r *FakeRuntime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	batch := append([]actor.Effect(nil), effects...)

	r.mu.Lock()
	r.batches = append(r.batches, batch)
	fn := r.OnEffect
	r.mu.Unlock()

	if fn == nil {
		return
	}
	for _, eff := range batch {
		fn(ctx, eff, emit)
	}
}

// Stop implements actor.Runtime.
func (r *FakeRuntime) Stop() {
	r.mu.Lock()
	r.stops++
	r.mu.Unlock()
}

// Stops reports how many times Stop ran.
func (r *FakeRuntime) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

// Batches returns the recorded batches in arrival order.
func (r *FakeRuntime) Batches() [][]actor.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]actor.Effect(nil), r.batches...)
}

// Effects returns every recorded effect, flattened.
func (r *FakeRuntime) Effects() []actor.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []actor.Effect
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}
