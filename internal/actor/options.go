package actor

const defaultMailboxSize = 256

// Hooks observe the loop. All of them run on the actor goroutine, so they
// must be fast and must not call back into the actor synchronously.
type Hooks[S any] struct {
	OnInput      func(in Input)
	OnTransition func(prev, next S, in Input)
	// OnEffects sees each non-empty batch before the Runtime does.
	OnEffects func(effects []Effect)
	// OnDrop runs on the enqueuing goroutine when the mailbox is full.
	OnDrop func(in Input)
	// OnPanic receives a recovered reducer or hook panic. Without it the
	// panic propagates.
	OnPanic func(recovered any)
}

// Option customizes New.
type Option[S any] func(*Actor[S])

// WithHooks installs observability hooks.
func WithHooks[S any](h Hooks[S]) Option[S] {
	return func(a *Actor[S]) { a.hooks = h }
}

// WithMailboxSize replaces the default mailbox capacity. n <= 0 keeps the
// default.
func WithMailboxSize[S any](n int) Option[S] {
	return func(a *Actor[S]) {
		if n > 0 {
			a.mailbox = make(chan Input, n)
		}
	}
}
