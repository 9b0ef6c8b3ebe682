package reconciler

import (
	"fmt"
	"time"

	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/provider"
	"github.com/bhandras/zkdash/internal/wallet"
)

// DefaultPollInterval is how often the connection tracker re-reads the
// provider's selected address to recover from missed notifications.
const DefaultPollInterval = 5 * time.Second

// Network is the single network the dashboard operates against.
type Network struct {
	ID   string
	Name string
}

// MismatchMessage is the blocking error shown while the provider is on any
// other network.
func (n Network) MismatchMessage() string {
	return fmt.Sprintf("Wrong network, please switch to the %s", n.Name)
}

// Phase is the externally visible connection phase for the extension kind.
type Phase string

const (
	// PhaseDisconnected means no external address is known.
	PhaseDisconnected Phase = "Disconnected"
	// PhaseAddressKnown means an address is known but the network is wrong.
	PhaseAddressKnown Phase = "AddressKnown"
	// PhaseNetworkValidated means the session can be (re)built.
	PhaseNetworkValidated Phase = "NetworkValidated"
	// PhaseSessionActive means a session is bound to the active address.
	PhaseSessionActive Phase = "SessionActive"
	// PhaseDrifted means the session was discarded because the user switched
	// accounts in the provider.
	PhaseDrifted Phase = "Drifted"
)

// State is the loop-owned reconciler state.
type State struct {
	// Target is the network sessions may be built against.
	Target Network
	// PollInterval drives the address self-heal timer.
	PollInterval time.Duration

	// Mounted is true between Mount and Unmount. Subscriptions, polling and
	// builds only exist while mounted.
	Mounted bool
	// MountGen increments on every Mount.
	MountGen int64

	// HasProvider reports whether a provider is attached.
	HasProvider bool
	// ProviderGen increments whenever the provider is attached or detached.
	// Provider events carry the generation so notifications from a replaced
	// provider are ignored.
	ProviderGen int64
	// SelectedAddress is the provider's last reported account.
	SelectedAddress string
	// NetworkVersion is the provider's last reported network.
	NetworkVersion string

	// Kind is the chosen wallet backend, empty until chosen or restored.
	Kind wallet.Kind
	// CurAddress is the tracked copy of SelectedAddress. It only follows the
	// provider while a Kind is chosen, so its absent->present edge marks a
	// fresh connection.
	CurAddress string

	// Session is the active zk-wallet session, nil when absent.
	Session *wallet.Session
	// Drifted is set when a session was discarded on account change and
	// cleared once a rebuild succeeds.
	Drifted bool

	// BuildGen increments for every build started and every build cancelled.
	// A completion is applied only when its generation equals BuildGen and a
	// build is in flight.
	BuildGen int64
	// BuildInFlight is true while a build started at BuildGen is outstanding.
	BuildInFlight bool
	// BuildKey identifies the inputs the in-flight build was started for.
	BuildKey string
	// FailedKey latches the inputs of the last failed build. The trigger
	// does not fire again for the same inputs.
	FailedKey string

	// Error is the blocking error message, empty when none.
	Error string
	// AccessModalOpen reports whether the re-authentication dialog is open.
	AccessModalOpen bool

	// AutoRefreshDisabledGen is the provider generation auto-refresh was
	// disabled for during the current mount; 0 when not yet disabled.
	AutoRefreshDisabledGen int64
	// NetworkSubscribed and AccountsSubscribed track live provider
	// subscriptions held by the runtime.
	NetworkSubscribed  bool
	AccountsSubscribed bool
}

// NewState returns the initial state for the given target network.
func NewState(target Network, pollInterval time.Duration) State {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return State{Target: target, PollInterval: pollInterval}
}

// Phase derives the connection phase.
func (s State) Phase() Phase {
	switch {
	case s.Session != nil:
		return PhaseSessionActive
	case s.Drifted:
		return PhaseDrifted
	case s.CurAddress == "":
		return PhaseDisconnected
	case s.Kind.IsExtension() && s.NetworkVersion != s.Target.ID:
		return PhaseAddressKnown
	default:
		return PhaseNetworkValidated
	}
}

// guarded reports whether the network guard and drift detector apply.
func (s State) guarded() bool {
	return s.Mounted && s.HasProvider && s.Kind.IsExtension()
}

// Inputs

// Event is a marker interface for events consumed by the reducer.
type Event interface {
	actor.Input
	isReconcilerEvent()
}

// Command is a marker interface for commands consumed by the reducer.
type Command interface {
	actor.Input
	isReconcilerCommand()
}

type cmdMount struct {
	actor.InputBase
}

func (cmdMount) isReconcilerCommand() {}

type cmdUnmount struct {
	actor.InputBase
}

func (cmdUnmount) isReconcilerCommand() {}

type cmdAttachProvider struct {
	actor.InputBase
	Provider        provider.Provider
	SelectedAddress string
	NetworkVersion  string
}

func (cmdAttachProvider) isReconcilerCommand() {}

type cmdDetachProvider struct {
	actor.InputBase
}

func (cmdDetachProvider) isReconcilerCommand() {}

type cmdSelectWallet struct {
	actor.InputBase
	Kind wallet.Kind
}

func (cmdSelectWallet) isReconcilerCommand() {}

type cmdDismissError struct {
	actor.InputBase
}

func (cmdDismissError) isReconcilerCommand() {}

type cmdDismissAccessModal struct {
	actor.InputBase
}

func (cmdDismissAccessModal) isReconcilerCommand() {}

type cmdLogout struct {
	actor.InputBase
}

func (cmdLogout) isReconcilerCommand() {}

type cmdRetry struct {
	actor.InputBase
}

func (cmdRetry) isReconcilerCommand() {}

// Events emitted by the runtime back into the reducer.

type evProviderSnapshot struct {
	actor.InputBase
	ProviderGen     int64
	NetworkVersion  string
	SelectedAddress string
}

func (evProviderSnapshot) isReconcilerEvent() {}

type evNetworkChanged struct {
	actor.InputBase
	ProviderGen     int64
	NetworkVersion  string
	SelectedAddress string
}

func (evNetworkChanged) isReconcilerEvent() {}

type evAccountsChanged struct {
	actor.InputBase
	ProviderGen     int64
	NetworkVersion  string
	SelectedAddress string
}

func (evAccountsChanged) isReconcilerEvent() {}

type evPollTick struct {
	actor.InputBase
	ProviderGen     int64
	SelectedAddress string
}

func (evPollTick) isReconcilerEvent() {}

type evWalletKindRestored struct {
	actor.InputBase
	MountGen int64
	Kind     wallet.Kind
}

func (evWalletKindRestored) isReconcilerEvent() {}

type evBuildSucceeded struct {
	actor.InputBase
	Gen    int64
	Result *wallet.Result
}

func (evBuildSucceeded) isReconcilerEvent() {}

type evBuildFailed struct {
	actor.InputBase
	Gen int64
	Err error
}

func (evBuildFailed) isReconcilerEvent() {}

// Effects

// Effect is a marker interface for effects emitted by the reducer.
type Effect interface {
	actor.Effect
	isReconcilerEffect()
}

type effBindProvider struct {
	actor.EffectBase
	Provider provider.Provider
	Gen      int64
}

func (effBindProvider) isReconcilerEffect() {}

type effUnbindProvider struct {
	actor.EffectBase
}

func (effUnbindProvider) isReconcilerEffect() {}

type effSubscribe struct {
	actor.EffectBase
	Event provider.Event
	Gen   int64
}

func (effSubscribe) isReconcilerEffect() {}

type effUnsubscribe struct {
	actor.EffectBase
	Event provider.Event
}

func (effUnsubscribe) isReconcilerEffect() {}

// effReadProvider asks the runtime to report the bound provider's current
// address and network as evProviderSnapshot.
type effReadProvider struct {
	actor.EffectBase
	Gen int64
}

func (effReadProvider) isReconcilerEffect() {}

type effDisableAutoRefresh struct {
	actor.EffectBase
}

func (effDisableAutoRefresh) isReconcilerEffect() {}

type effStartPolling struct {
	actor.EffectBase
	Interval time.Duration
}

func (effStartPolling) isReconcilerEffect() {}

type effStopPolling struct {
	actor.EffectBase
}

func (effStopPolling) isReconcilerEffect() {}

type effStartBuild struct {
	actor.EffectBase
	Gen     int64
	Request wallet.BuildRequest
}

func (effStartBuild) isReconcilerEffect() {}

type effCancelBuild struct {
	actor.EffectBase
	Gen int64
}

func (effCancelBuild) isReconcilerEffect() {}

// effPersistWalletKind writes the kind to durable storage. With Reread set
// the runtime reads the value back and reports it as evWalletKindRestored.
type effPersistWalletKind struct {
	actor.EffectBase
	Kind     wallet.Kind
	Reread   bool
	MountGen int64
}

func (effPersistWalletKind) isReconcilerEffect() {}

type effLoadWalletKind struct {
	actor.EffectBase
	MountGen int64
}

func (effLoadWalletKind) isReconcilerEffect() {}

type effRemoveWalletKind struct {
	actor.EffectBase
}

func (effRemoveWalletKind) isReconcilerEffect() {}

// Store writes.

type effSetError struct {
	actor.EffectBase
	Message string
}

func (effSetError) isReconcilerEffect() {}

type effSetAccessModal struct {
	actor.EffectBase
	Open bool
}

func (effSetAccessModal) isReconcilerEffect() {}

type effShowHint struct {
	actor.EffectBase
	Text string
}

func (effShowHint) isReconcilerEffect() {}

type effSetWalletKind struct {
	actor.EffectBase
	Kind wallet.Kind
}

func (effSetWalletKind) isReconcilerEffect() {}

type effSetSession struct {
	actor.EffectBase
	Session *wallet.Session
}

func (effSetSession) isReconcilerEffect() {}

type effSetBalances struct {
	actor.EffectBase
	Balances []wallet.Balance
}

func (effSetBalances) isReconcilerEffect() {}

type effSyncConnection struct {
	actor.EffectBase
	ProviderAttached bool
	NetworkVersion   string
	Address          string
	Phase            Phase
}

func (effSyncConnection) isReconcilerEffect() {}
