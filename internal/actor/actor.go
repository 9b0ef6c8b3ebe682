// Package actor hosts a pure reducer on a single goroutine.
//
// Callers and the runtime both feed the same mailbox. Each input is reduced
// against the current state; the resulting effects are handed to a Runtime,
// which performs them and reports outcomes back as further inputs. Because
// runtime work is asynchronous, an outcome may arrive after inputs that were
// enqueued later; reducers guard against that with generation counters.
package actor

import (
	"context"
	"sync"
)

// Input is anything a reducer accepts: a caller command or a runtime event.
type Input interface {
	isActorInput()
}

// Effect is a side effect described as data. Only the Runtime executes it.
type Effect interface {
	isActorEffect()
}

// ReducerFunc computes the next state and the effects to perform. It must not
// do I/O, start goroutines or read the clock.
type ReducerFunc[S any] func(state S, input Input) (next S, effects []Effect)

// Runtime executes effects on behalf of an actor.
type Runtime interface {
	// HandleEffects is called on the actor goroutine and must not block.
	// Long-running work reports back through emit, and stops reporting once
	// ctx is done.
	HandleEffects(ctx context.Context, effects []Effect, emit func(Input))

	// Stop releases background work. Repeated calls are no-ops.
	Stop()
}

// Actor owns a state value of type S and applies inputs to it one at a time.
type Actor[S any] struct {
	reduce  ReducerFunc[S]
	runtime Runtime
	hooks   Hooks[S]

	mailbox chan Input
	ctx     context.Context
	cancel  context.CancelFunc
	started sync.Once
	done    chan struct{}

	mu    sync.RWMutex
	state S
}

// New returns a stopped actor. Call Start to run it.
func New[S any](initial S, reducer ReducerFunc[S], runtime Runtime, opts ...Option[S]) *Actor[S] {
	a := &Actor[S]{
		reduce:  reducer,
		runtime: runtime,
		state:   initial,
		mailbox: make(chan Input, defaultMailboxSize),
		done:    make(chan struct{}),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start runs the loop. Only the first call has an effect.
func (a *Actor[S]) Start() {
	a.started.Do(func() { go a.run() })
}

// Stop ends the loop and stops the runtime. Inputs still queued are
// discarded. Done closes once the loop has exited; for an actor that was
// never started it closes immediately.
func (a *Actor[S]) Stop() {
	a.cancel()
	a.started.Do(func() { close(a.done) })
	if a.runtime != nil {
		a.runtime.Stop()
	}
}

// Done is closed when the loop has exited.
func (a *Actor[S]) Done() <-chan struct{} { return a.done }

// Enqueue offers in to the mailbox without blocking. It reports false when the
// actor is stopped or the mailbox is full; the latter fires OnDrop.
func (a *Actor[S]) Enqueue(in Input) bool {
	if in == nil || a.ctx.Err() != nil {
		return false
	}
	select {
	case a.mailbox <- in:
		return true
	default:
	}
	if a.hooks.OnDrop != nil {
		a.hooks.OnDrop(in)
	}
	return false
}

// State returns the most recently applied state.
func (a *Actor[S]) State() S {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Actor[S]) run() {
	defer close(a.done)

	emit := func(in Input) { a.Enqueue(in) }
	for {
		select {
		case <-a.ctx.Done():
			return
		case in := <-a.mailbox:
			a.apply(in, emit)
		}
	}
}

// apply reduces one input. A reducer panic leaves the state untouched and
// drops the input; without an OnPanic hook it crashes the process.
func (a *Actor[S]) apply(in Input, emit func(Input)) {
	defer func() {
		if r := recover(); r != nil {
			if a.hooks.OnPanic == nil {
				panic(r)
			}
			a.hooks.OnPanic(r)
		}
	}()

	if a.hooks.OnInput != nil {
		a.hooks.OnInput(in)
	}

	prev := a.State()
	next, effects := a.reduce(prev, in)

	a.mu.Lock()
	a.state = next
	a.mu.Unlock()

	if a.hooks.OnTransition != nil {
		a.hooks.OnTransition(prev, next, in)
	}
	if len(effects) == 0 {
		return
	}
	if a.hooks.OnEffects != nil {
		a.hooks.OnEffects(effects)
	}
	if a.runtime != nil {
		a.runtime.HandleEffects(a.ctx, effects, emit)
	}
}
