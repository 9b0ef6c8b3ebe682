// Package reconciler keeps the zk-wallet session consistent with an external
// wallet provider.
//
// A pure reducer owns the connection, network, build and drift rules; the
// Runtime performs provider subscriptions, polling, storage access and
// session builds, and mirrors state into the shared store. Both are hosted
// on a single actor loop so every input is applied in arrival order.
package reconciler

import (
	"fmt"
	"time"

	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/metrics"
	"github.com/bhandras/zkdash/internal/provider"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/bhandras/zkdash/pkg/logger"
)

// Config holds the reconciler's static settings.
type Config struct {
	Target       Network
	PollInterval time.Duration
	MailboxSize  int
}

// Reconciler runs the session reconciler on an actor loop.
type Reconciler struct {
	actor   *actor.Actor[State]
	metrics *metrics.Metrics
}

// New creates a reconciler. m may be nil.
func New(cfg Config, rt actor.Runtime, m *metrics.Metrics) *Reconciler {
	r := &Reconciler{metrics: m}

	opts := []actor.Option[State]{
		actor.WithHooks(r.hooks()),
	}
	if cfg.MailboxSize > 0 {
		opts = append(opts, actor.WithMailboxSize[State](cfg.MailboxSize))
	}
	r.actor = actor.New(NewState(cfg.Target, cfg.PollInterval), Reduce, rt, opts...)
	m.SetPhase("", string(PhaseDisconnected))
	return r
}

// Start launches the loop and mounts the reconciler.
func (r *Reconciler) Start() {
	r.actor.Start()
	r.actor.Enqueue(Mount())
}

// Stop stops the loop and the runtime. Background work owned by the runtime
// is released before Stop returns.
func (r *Reconciler) Stop() {
	r.actor.Stop()
	<-r.actor.Done()
}

// State returns a snapshot of the reconciler state.
func (r *Reconciler) State() State {
	return r.actor.State()
}

// Enqueue delivers an input without blocking.
func (r *Reconciler) Enqueue(in actor.Input) bool {
	return r.actor.Enqueue(in)
}

// AttachProvider makes p the active provider.
func (r *Reconciler) AttachProvider(p provider.Provider) bool {
	return r.actor.Enqueue(AttachProvider(p))
}

// DetachProvider drops the active provider.
func (r *Reconciler) DetachProvider() bool {
	return r.actor.Enqueue(DetachProvider())
}

// SelectWallet chooses the wallet backend.
func (r *Reconciler) SelectWallet(kind wallet.Kind) bool {
	return r.actor.Enqueue(SelectWallet(kind))
}

// DismissError closes the error dialog.
func (r *Reconciler) DismissError() bool {
	return r.actor.Enqueue(DismissError())
}

// DismissAccessModal closes the re-authentication dialog.
func (r *Reconciler) DismissAccessModal() bool {
	return r.actor.Enqueue(DismissAccessModal())
}

// Logout discards the session and the chosen wallet kind.
func (r *Reconciler) Logout() bool {
	return r.actor.Enqueue(Logout())
}

// Retry re-arms a failed build.
func (r *Reconciler) Retry() bool {
	return r.actor.Enqueue(Retry())
}

func (r *Reconciler) hooks() actor.Hooks[State] {
	return actor.Hooks[State]{
		OnInput: func(in actor.Input) {
			name := inputName(in)
			r.metrics.RecordInput(name)
			if logger.Enabled(logger.LevelTrace) {
				logger.Tracef("reconciler: input %s", name)
			}
		},
		OnTransition: func(prev, next State, in actor.Input) {
			if prev.Phase() != next.Phase() {
				r.metrics.SetPhase(string(prev.Phase()), string(next.Phase()))
				logger.Debugf("reconciler: phase %s -> %s", prev.Phase(), next.Phase())
			}
			if next.Drifted && !prev.Drifted {
				r.metrics.RecordDrift()
				logger.Infof("reconciler: account switched, session discarded")
			}
			switch ev := in.(type) {
			case evBuildSucceeded:
				if !prev.isCurrentBuild(ev.Gen) {
					return
				}
				if next.Session != nil {
					r.metrics.RecordBuild(metrics.BuildSucceeded)
				} else {
					r.metrics.RecordBuild(metrics.BuildFailed)
				}
			case evBuildFailed:
				if prev.isCurrentBuild(ev.Gen) {
					r.metrics.RecordBuild(metrics.BuildFailed)
				}
			}
		},
		OnEffects: func(effects []actor.Effect) {
			for _, eff := range effects {
				switch eff.(type) {
				case effStartBuild:
					r.metrics.RecordBuild(metrics.BuildStarted)
				case effCancelBuild:
					r.metrics.RecordBuild(metrics.BuildCancelled)
				}
			}
		},
		OnDrop: func(in actor.Input) {
			r.metrics.RecordDrop()
			logger.Warnf("reconciler: mailbox full, dropped %s", inputName(in))
		},
		OnPanic: func(recovered any) {
			logger.Errorf("reconciler: loop panicked: %v", recovered)
		},
	}
}

func inputName(in actor.Input) string {
	return fmt.Sprintf("%T", in)
}
