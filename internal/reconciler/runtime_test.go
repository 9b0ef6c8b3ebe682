package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/actor/actortest"
	"github.com/bhandras/zkdash/internal/provider"
	"github.com/bhandras/zkdash/internal/provider/providertest"
	"github.com/bhandras/zkdash/internal/storage"
	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/stretchr/testify/require"
)

// fakeBuilder returns a session for the requested address. While block is
// non-nil, builds wait for it to close or for cancellation.
type fakeBuilder struct {
	mu       sync.Mutex
	requests []wallet.BuildRequest
	block    chan struct{}
	err      error
}

func (b *fakeBuilder) Build(ctx context.Context, req wallet.BuildRequest) (*wallet.Result, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	block, err := b.block, b.err
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	address := req.Address
	if address == "" {
		address = addrA
	}
	return &wallet.Result{
		Session:  newSession(req.Kind, address),
		Balances: []wallet.Balance{{Token: "ETH", Amount: "1"}},
	}, nil
}

func (b *fakeBuilder) Requests() []wallet.BuildRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]wallet.BuildRequest(nil), b.requests...)
}

type recorder struct {
	mu     sync.Mutex
	inputs []actor.Input
}

func (r *recorder) emit(in actor.Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
}

func (r *recorder) snapshot() []actor.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actor.Input(nil), r.inputs...)
}

func inputsOf[T actor.Input](inputs []actor.Input) []T {
	var out []T
	for _, in := range inputs {
		if v, ok := in.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func newTestRuntime(t *testing.T, b wallet.Builder, opts ...RuntimeOption) (*Runtime, *store.Store, *storage.Memory) {
	t.Helper()

	st := store.New()
	kv := storage.NewMemory()
	rt := NewRuntime(st, kv, b, opts...)
	t.Cleanup(rt.Stop)
	return rt, st, kv
}

func TestRuntimeSubscriptions(t *testing.T) {
	t.Parallel()

	rt, _, _ := newTestRuntime(t, &fakeBuilder{})
	p := providertest.NewFake(addrA, "5")
	rec := &recorder{}
	ctx := context.Background()

	rt.HandleEffects(ctx, []actor.Effect{
		effBindProvider{Provider: p, Gen: 1},
		effDisableAutoRefresh{},
		effSubscribe{Event: provider.EventNetworkChanged, Gen: 1},
		effSubscribe{Event: provider.EventAccountsChanged, Gen: 1},
		// Duplicate and stale subscriptions are ignored.
		effSubscribe{Event: provider.EventAccountsChanged, Gen: 1},
		effSubscribe{Event: provider.EventNetworkChanged, Gen: 7},
	}, rec.emit)

	require.False(t, p.AutoRefresh())
	require.Equal(t, 1, p.Count(provider.EventNetworkChanged))
	require.Equal(t, 1, p.Count(provider.EventAccountsChanged))

	// Subscribing to the network checks it immediately.
	nets := inputsOf[evNetworkChanged](rec.snapshot())
	require.Equal(t, []evNetworkChanged{{ProviderGen: 1, NetworkVersion: "5", SelectedAddress: addrA}}, nets)

	p.SwitchAccount(addrB)
	accounts := inputsOf[evAccountsChanged](rec.snapshot())
	require.Equal(t, []evAccountsChanged{{ProviderGen: 1, NetworkVersion: "5", SelectedAddress: addrB}}, accounts)

	rt.HandleEffects(ctx, []actor.Effect{
		effUnsubscribe{Event: provider.EventNetworkChanged},
		effUnsubscribe{Event: provider.EventAccountsChanged},
	}, rec.emit)
	require.Zero(t, p.Count(provider.EventNetworkChanged))
	require.Zero(t, p.Count(provider.EventAccountsChanged))
}

func TestRuntimeRebindReleasesOldProvider(t *testing.T) {
	t.Parallel()

	rt, _, _ := newTestRuntime(t, &fakeBuilder{})
	oldP := providertest.NewFake(addrA, "1")
	newP := providertest.NewFake(addrB, "1")
	rec := &recorder{}
	ctx := context.Background()

	rt.HandleEffects(ctx, []actor.Effect{
		effBindProvider{Provider: oldP, Gen: 1},
		effSubscribe{Event: provider.EventAccountsChanged, Gen: 1},
		effBindProvider{Provider: newP, Gen: 2},
		effReadProvider{Gen: 2},
		effReadProvider{Gen: 1},
	}, rec.emit)

	require.Zero(t, oldP.Count(provider.EventAccountsChanged))
	snaps := inputsOf[evProviderSnapshot](rec.snapshot())
	require.Equal(t, []evProviderSnapshot{{ProviderGen: 2, NetworkVersion: "1", SelectedAddress: addrB}}, snaps)

	rt.HandleEffects(ctx, []actor.Effect{effUnbindProvider{}, effReadProvider{Gen: 2}}, rec.emit)
	require.Len(t, inputsOf[evProviderSnapshot](rec.snapshot()), 1)
}

func TestRuntimeWalletKindStorage(t *testing.T) {
	t.Parallel()

	rt, _, kv := newTestRuntime(t, &fakeBuilder{})
	rec := &recorder{}
	ctx := context.Background()

	rt.HandleEffects(ctx, []actor.Effect{effLoadWalletKind{MountGen: 1}}, rec.emit)
	require.Empty(t, rec.snapshot())

	rt.HandleEffects(ctx, []actor.Effect{
		effPersistWalletKind{Kind: wallet.KindLedger, MountGen: 1},
	}, rec.emit)
	require.Empty(t, rec.snapshot())
	v, ok, err := kv.GetItem(storage.KeyWalletName)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ledger", v)

	rt.HandleEffects(ctx, []actor.Effect{
		effPersistWalletKind{Kind: wallet.KindMetamask, Reread: true, MountGen: 2},
		effLoadWalletKind{MountGen: 2},
	}, rec.emit)
	restored := inputsOf[evWalletKindRestored](rec.snapshot())
	require.Equal(t, []evWalletKindRestored{
		{MountGen: 2, Kind: wallet.KindMetamask},
		{MountGen: 2, Kind: wallet.KindMetamask},
	}, restored)

	require.NoError(t, kv.SetItem(storage.KeyWalletName, "paper"))
	rt.HandleEffects(ctx, []actor.Effect{effLoadWalletKind{MountGen: 3}}, rec.emit)
	require.Len(t, inputsOf[evWalletKindRestored](rec.snapshot()), 2)

	rt.HandleEffects(ctx, []actor.Effect{effRemoveWalletKind{}}, rec.emit)
	_, ok, err = kv.GetItem(storage.KeyWalletName)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRuntimeBuildCompletes(t *testing.T) {
	t.Parallel()

	b := &fakeBuilder{}
	rt, _, _ := newTestRuntime(t, b)
	rec := &recorder{}

	rt.HandleEffects(context.Background(), []actor.Effect{
		effStartBuild{Gen: 3, Request: wallet.BuildRequest{Kind: wallet.KindMetamask, Address: addrB}},
	}, rec.emit)

	require.Eventually(t, func() bool {
		return len(inputsOf[evBuildSucceeded](rec.snapshot())) == 1
	}, 2*time.Second, 5*time.Millisecond)

	done := inputsOf[evBuildSucceeded](rec.snapshot())[0]
	require.EqualValues(t, 3, done.Gen)
	require.Equal(t, addrB, done.Result.Session.Address())
	require.Equal(t, []wallet.BuildRequest{{Kind: wallet.KindMetamask, Address: addrB}}, b.Requests())
}

func TestRuntimeCancelBuild(t *testing.T) {
	t.Parallel()

	b := &fakeBuilder{block: make(chan struct{})}
	rt, _, _ := newTestRuntime(t, b)
	rec := &recorder{}
	ctx := context.Background()

	rt.HandleEffects(ctx, []actor.Effect{
		effStartBuild{Gen: 1, Request: wallet.BuildRequest{Kind: wallet.KindLedger}},
	}, rec.emit)
	require.Eventually(t, func() bool { return len(b.Requests()) == 1 }, 2*time.Second, 5*time.Millisecond)

	rt.HandleEffects(ctx, []actor.Effect{effCancelBuild{Gen: 1}}, rec.emit)

	require.Eventually(t, func() bool {
		return len(inputsOf[evBuildFailed](rec.snapshot())) == 1
	}, 2*time.Second, 5*time.Millisecond)
	failed := inputsOf[evBuildFailed](rec.snapshot())[0]
	require.EqualValues(t, 1, failed.Gen)
	require.True(t, errors.Is(failed.Err, context.Canceled))
}

func TestRuntimeBuildTimeout(t *testing.T) {
	t.Parallel()

	b := &fakeBuilder{block: make(chan struct{})}
	rt, _, _ := newTestRuntime(t, b, WithBuildTimeout(20*time.Millisecond))
	rec := &recorder{}

	rt.HandleEffects(context.Background(), []actor.Effect{
		effStartBuild{Gen: 1, Request: wallet.BuildRequest{Kind: wallet.KindLedger}},
	}, rec.emit)

	require.Eventually(t, func() bool {
		failed := inputsOf[evBuildFailed](rec.snapshot())
		return len(failed) == 1 && errors.Is(failed[0].Err, context.DeadlineExceeded)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRuntimePolling(t *testing.T) {
	t.Parallel()

	clock := actortest.NewFakeClock(time.Unix(0, 0))
	rt, _, _ := newTestRuntime(t, &fakeBuilder{}, WithClock(clock))
	p := providertest.NewFake("", "1")
	rec := &recorder{}
	ctx := context.Background()

	rt.HandleEffects(ctx, []actor.Effect{
		effBindProvider{Provider: p, Gen: 4},
		effStartPolling{Interval: 5 * time.Second},
	}, rec.emit)
	require.Equal(t, 1, clock.Tickers())

	p.SetSelectedAddress(addrA)
	require.Eventually(t, func() bool {
		clock.Advance(5 * time.Second)
		ticks := inputsOf[evPollTick](rec.snapshot())
		return len(ticks) > 0 && ticks[len(ticks)-1] == evPollTick{ProviderGen: 4, SelectedAddress: addrA}
	}, 2*time.Second, 5*time.Millisecond)

	rt.HandleEffects(ctx, []actor.Effect{effStopPolling{}}, rec.emit)
	require.Eventually(t, func() bool { return clock.Tickers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestRuntimeStoreWrites(t *testing.T) {
	t.Parallel()

	rt, st, _ := newTestRuntime(t, &fakeBuilder{})
	session := newSession(wallet.KindMetamask, addrA)

	rt.HandleEffects(context.Background(), []actor.Effect{
		effSetError{Message: "boom"},
		effSetAccessModal{Open: true},
		effShowHint{Text: HintConnected},
		effSetWalletKind{Kind: wallet.KindMetamask},
		effSetSession{Session: session},
		effSetBalances{Balances: []wallet.Balance{{Token: "ETH", Amount: "3"}}},
		effSyncConnection{ProviderAttached: true, NetworkVersion: "1", Address: addrA, Phase: PhaseSessionActive},
	}, (&recorder{}).emit)

	snap := st.Snapshot()
	require.Equal(t, "boom", snap.Error)
	require.True(t, snap.AccessModalOpen)
	require.Equal(t, HintConnected, snap.Hint)
	require.Equal(t, wallet.KindMetamask, snap.WalletKind)
	require.Same(t, session, snap.Session)
	require.Equal(t, []wallet.Balance{{Token: "ETH", Amount: "3"}}, snap.Balances)
	require.True(t, snap.ProviderAttached)
	require.Equal(t, addrA, snap.Address)
	require.Equal(t, string(PhaseSessionActive), snap.Phase)
}

func TestRuntimeStopReleasesEverything(t *testing.T) {
	t.Parallel()

	clock := actortest.NewFakeClock(time.Unix(0, 0))
	b := &fakeBuilder{block: make(chan struct{})}
	rt := NewRuntime(store.New(), storage.NewMemory(), b, WithClock(clock))
	p := providertest.NewFake(addrA, "1")
	rec := &recorder{}

	rt.HandleEffects(context.Background(), []actor.Effect{
		effBindProvider{Provider: p, Gen: 1},
		effSubscribe{Event: provider.EventAccountsChanged, Gen: 1},
		effStartPolling{Interval: time.Second},
		effStartBuild{Gen: 1, Request: wallet.BuildRequest{Kind: wallet.KindLedger}},
	}, rec.emit)

	rt.Stop()
	require.Zero(t, p.Count(provider.EventAccountsChanged))
	require.Zero(t, clock.Tickers())

	// Effects after Stop start nothing.
	rt.HandleEffects(context.Background(), []actor.Effect{effStartPolling{Interval: time.Second}}, rec.emit)
	require.Zero(t, clock.Tickers())
	rt.Stop()
}
