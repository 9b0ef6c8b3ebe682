package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/provider"
	"github.com/bhandras/zkdash/internal/storage"
	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/bhandras/zkdash/pkg/logger"
)

// DefaultBuildTimeout bounds a single session build.
const DefaultBuildTimeout = 2 * time.Minute

// Runtime interprets reconciler effects.
//
// Runtime never mutates reconciler state. Provider notifications, poll ticks,
// storage reads and build completions are emitted back into the mailbox.
type Runtime struct {
	store   *store.Store
	storage storage.Store
	builder wallet.Builder

	clock        actor.Clock
	buildTimeout time.Duration

	mu          sync.Mutex
	provider    provider.Provider
	providerGen int64
	subs        map[provider.Event]provider.SubscriptionID
	pollStop    chan struct{}
	builds      map[int64]context.CancelFunc
	stopped     bool

	wg sync.WaitGroup
}

var _ actor.Runtime = (*Runtime)(nil)

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithClock sets the clock driving the address poll timer.
func WithClock(c actor.Clock) RuntimeOption {
	return func(r *Runtime) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithBuildTimeout bounds each session build. Non-positive values disable
// the bound.
func WithBuildTimeout(d time.Duration) RuntimeOption {
	return func(r *Runtime) { r.buildTimeout = d }
}

// NewRuntime returns a Runtime writing to st, persisting the wallet kind in
// kv and creating sessions with b.
func NewRuntime(st *store.Store, kv storage.Store, b wallet.Builder, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:        st,
		storage:      kv,
		builder:      b,
		clock:        actor.RealClock{},
		buildTimeout: DefaultBuildTimeout,
		subs:         make(map[provider.Event]provider.SubscriptionID),
		builds:       make(map[int64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effBindProvider:
			r.bindProvider(e)
		case effUnbindProvider:
			r.unbindProvider()
		case effSubscribe:
			r.subscribe(ctx, e, emit)
		case effUnsubscribe:
			r.unsubscribe(e.Event)
		case effDisableAutoRefresh:
			if p, _ := r.current(); p != nil {
				p.SetAutoRefreshOnNetworkChange(false)
			}
		case effReadProvider:
			r.readProvider(e, emit)
		case effStartPolling:
			r.startPolling(ctx, e, emit)
		case effStopPolling:
			r.stopPolling()
		case effStartBuild:
			r.startBuild(ctx, e, emit)
		case effCancelBuild:
			r.cancelBuild(e.Gen)
		case effPersistWalletKind:
			r.persistWalletKind(e, emit)
		case effLoadWalletKind:
			r.loadWalletKind(e, emit)
		case effRemoveWalletKind:
			if err := r.storage.RemoveItem(storage.KeyWalletName); err != nil {
				logger.Warnf("reconciler: remove wallet kind: %v", err)
			}
		case effSetError:
			r.store.SetError(e.Message)
		case effSetAccessModal:
			r.store.SetAccessModal(e.Open)
		case effShowHint:
			r.store.SetHint(e.Text)
		case effSetWalletKind:
			r.store.SetWalletKind(e.Kind)
		case effSetSession:
			r.store.SetSession(e.Session)
		case effSetBalances:
			r.store.SetBalances(e.Balances)
		case effSyncConnection:
			r.store.SetConnection(store.Connection{
				ProviderAttached: e.ProviderAttached,
				NetworkVersion:   e.NetworkVersion,
				Address:          e.Address,
				Phase:            string(e.Phase),
			})
		default:
			logger.Debugf("reconciler: unknown effect %T", eff)
		}
	}
}

// Stop implements actor.Runtime. It releases subscriptions, stops polling and
// cancels in-flight builds, then waits for background goroutines.
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.releaseSubsLocked()
	r.provider = nil
	if r.pollStop != nil {
		close(r.pollStop)
		r.pollStop = nil
	}
	for gen, cancel := range r.builds {
		cancel()
		delete(r.builds, gen)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runtime) current() (provider.Provider, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provider, r.providerGen
}

func (r *Runtime) bindProvider(e effBindProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseSubsLocked()
	r.provider = e.Provider
	r.providerGen = e.Gen
}

func (r *Runtime) unbindProvider() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseSubsLocked()
	r.provider = nil
}

func (r *Runtime) releaseSubsLocked() {
	for event, id := range r.subs {
		if r.provider != nil {
			r.provider.Off(event, id)
		}
		delete(r.subs, event)
	}
}

func (r *Runtime) subscribe(ctx context.Context, e effSubscribe, emit func(actor.Input)) {
	r.mu.Lock()
	p := r.provider
	if p == nil || r.providerGen != e.Gen {
		r.mu.Unlock()
		return
	}
	if _, ok := r.subs[e.Event]; ok {
		r.mu.Unlock()
		return
	}

	gen := e.Gen
	var handler provider.Handler
	switch e.Event {
	case provider.EventNetworkChanged:
		handler = func() {
			if ctx.Err() != nil {
				return
			}
			emit(evNetworkChanged{
				ProviderGen:     gen,
				NetworkVersion:  p.NetworkVersion(),
				SelectedAddress: p.SelectedAddress(),
			})
		}
	case provider.EventAccountsChanged:
		handler = func() {
			if ctx.Err() != nil {
				return
			}
			emit(evAccountsChanged{
				ProviderGen:     gen,
				NetworkVersion:  p.NetworkVersion(),
				SelectedAddress: p.SelectedAddress(),
			})
		}
	default:
		r.mu.Unlock()
		logger.Debugf("reconciler: ignoring subscription to %q", e.Event)
		return
	}
	r.subs[e.Event] = p.On(e.Event, handler)
	r.mu.Unlock()

	// The network guard checks the current network as soon as it subscribes.
	if e.Event == provider.EventNetworkChanged {
		handler()
	}
}

func (r *Runtime) unsubscribe(event provider.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.subs[event]
	if !ok {
		return
	}
	delete(r.subs, event)
	if r.provider != nil {
		r.provider.Off(event, id)
	}
}

func (r *Runtime) readProvider(e effReadProvider, emit func(actor.Input)) {
	p, gen := r.current()
	if p == nil || gen != e.Gen {
		return
	}
	emit(evProviderSnapshot{
		ProviderGen:     gen,
		NetworkVersion:  p.NetworkVersion(),
		SelectedAddress: p.SelectedAddress(),
	})
}

func (r *Runtime) startPolling(ctx context.Context, e effStartPolling, emit func(actor.Input)) {
	r.stopPolling()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	ticker := r.clock.NewTicker(e.Interval)
	stop := make(chan struct{})
	r.pollStop = stop
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C():
				p, gen := r.current()
				if p == nil {
					continue
				}
				emit(evPollTick{ProviderGen: gen, SelectedAddress: p.SelectedAddress()})
			}
		}
	}()
}

func (r *Runtime) stopPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollStop != nil {
		close(r.pollStop)
		r.pollStop = nil
	}
}

func (r *Runtime) startBuild(ctx context.Context, e effStartBuild, emit func(actor.Input)) {
	var (
		buildCtx context.Context
		cancel   context.CancelFunc
	)
	if r.buildTimeout > 0 {
		buildCtx, cancel = context.WithTimeout(ctx, r.buildTimeout)
	} else {
		buildCtx, cancel = context.WithCancel(ctx)
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		cancel()
		return
	}
	r.builds[e.Gen] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	logger.Debugf("reconciler: build %d started (kind=%s address=%s)", e.Gen, e.Request.Kind, e.Request.Address)

	go func() {
		defer r.wg.Done()

		res, err := r.builder.Build(buildCtx, e.Request)

		r.mu.Lock()
		delete(r.builds, e.Gen)
		r.mu.Unlock()
		cancel()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warnf("reconciler: build %d failed: %v", e.Gen, err)
			emit(evBuildFailed{Gen: e.Gen, Err: err})
			return
		}
		emit(evBuildSucceeded{Gen: e.Gen, Result: res})
	}()
}

func (r *Runtime) cancelBuild(gen int64) {
	r.mu.Lock()
	cancel, ok := r.builds[gen]
	delete(r.builds, gen)
	r.mu.Unlock()
	if ok {
		logger.Debugf("reconciler: build %d cancelled", gen)
		cancel()
	}
}

func (r *Runtime) persistWalletKind(e effPersistWalletKind, emit func(actor.Input)) {
	if err := r.storage.SetItem(storage.KeyWalletName, string(e.Kind)); err != nil {
		logger.Warnf("reconciler: persist wallet kind: %v", err)
	}
	if !e.Reread {
		return
	}
	// The read-back is a no-op for Memory; it only observes something when a
	// file or sqlite backend is shared with another process.
	r.emitStoredKind(e.MountGen, emit)
}

func (r *Runtime) loadWalletKind(e effLoadWalletKind, emit func(actor.Input)) {
	r.emitStoredKind(e.MountGen, emit)
}

func (r *Runtime) emitStoredKind(mountGen int64, emit func(actor.Input)) {
	raw, ok, err := r.storage.GetItem(storage.KeyWalletName)
	if err != nil {
		logger.Warnf("reconciler: read wallet kind: %v", err)
		return
	}
	if !ok {
		return
	}
	kind, err := wallet.ParseKind(raw)
	if err != nil {
		logger.Warnf("reconciler: stored wallet kind: %v", err)
		return
	}
	emit(evWalletKindRestored{MountGen: mountGen, Kind: kind})
}
