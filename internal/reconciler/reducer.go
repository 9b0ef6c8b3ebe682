package reconciler

import (
	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/wallet"
)

// Reduce is the session reconciler reducer.
//
// Each input is applied first, then the derived rules run in a fixed order:
// subscriptions follow the guard condition, the build trigger is evaluated,
// an active session closes the access dialog, and finally every state change
// visible through the store is published as an effect.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	prev := state

	next, effects := reduceInput(state, input)
	next, effects = reconcileSubscriptions(next, effects)
	next, effects = evaluateBuild(next, effects)
	if next.Session != nil {
		next.AccessModalOpen = false
	}
	effects = appendHint(prev, next, effects)
	effects = publishChanges(prev, next, effects)

	return next, effects
}

func reduceInput(state State, input actor.Input) (State, []actor.Effect) {
	switch in := input.(type) {
	case cmdMount:
		return reduceMount(state)
	case cmdUnmount:
		return reduceUnmount(state)
	case cmdAttachProvider:
		return reduceAttachProvider(state, in)
	case cmdDetachProvider:
		return reduceDetachProvider(state)
	case cmdSelectWallet:
		return reduceSelectWallet(state, in)
	case cmdDismissError:
		state.Error = ""
		return state, nil
	case cmdDismissAccessModal:
		state.AccessModalOpen = false
		return state, nil
	case cmdLogout:
		return reduceLogout(state)
	case cmdRetry:
		return reduceRetry(state)

	case evProviderSnapshot:
		return reduceProviderSnapshot(state, in)
	case evNetworkChanged:
		return reduceNetworkChanged(state, in)
	case evAccountsChanged:
		return reduceAccountsChanged(state, in)
	case evPollTick:
		return reducePollTick(state, in)
	case evWalletKindRestored:
		return reduceWalletKindRestored(state, in)
	case evBuildSucceeded:
		return reduceBuildSucceeded(state, in)
	case evBuildFailed:
		return reduceBuildFailed(state, in)
	default:
		return state, nil
	}
}

func reduceMount(state State) (State, []actor.Effect) {
	if state.Mounted {
		return state, nil
	}
	state.Mounted = true
	state.MountGen++
	state.AutoRefreshDisabledGen = 0

	return state, []actor.Effect{
		effLoadWalletKind{MountGen: state.MountGen},
		effStartPolling{Interval: state.PollInterval},
	}
}

func reduceUnmount(state State) (State, []actor.Effect) {
	if !state.Mounted {
		return state, nil
	}
	state.Mounted = false

	var effects []actor.Effect
	state, effects = cancelBuild(state, effects)
	effects = append(effects, effStopPolling{})

	// Subscriptions are released by reconcileSubscriptions since the guard
	// no longer holds once unmounted.
	return state, effects
}

func reduceAttachProvider(state State, cmd cmdAttachProvider) (State, []actor.Effect) {
	var effects []actor.Effect
	state, effects = dropSubscriptions(state, effects)

	state.ProviderGen++
	state.HasProvider = true
	state.SelectedAddress = cmd.SelectedAddress
	state.NetworkVersion = cmd.NetworkVersion
	effects = append(effects, effBindProvider{Provider: cmd.Provider, Gen: state.ProviderGen})

	// The new provider may report another account than the session's; no
	// accountsChanged will arrive for a switch that happened before attach.
	state = trackAddress(state)
	state, drift := detectDrift(state)
	return state, append(effects, drift...)
}

func reduceDetachProvider(state State) (State, []actor.Effect) {
	if !state.HasProvider {
		return state, nil
	}
	var effects []actor.Effect
	state, effects = dropSubscriptions(state, effects)

	state.ProviderGen++
	state.HasProvider = false
	state.SelectedAddress = ""
	state.NetworkVersion = ""
	state.CurAddress = ""
	effects = append(effects, effUnbindProvider{})
	return state, effects
}

func reduceSelectWallet(state State, cmd cmdSelectWallet) (State, []actor.Effect) {
	if !cmd.Kind.Valid() {
		return state, nil
	}
	state.FailedKey = ""

	var effects []actor.Effect
	state, effects = applyKind(state, cmd.Kind, effects)
	effects = append(effects, effPersistWalletKind{Kind: cmd.Kind, MountGen: state.MountGen})
	return state, effects
}

func reduceWalletKindRestored(state State, ev evWalletKindRestored) (State, []actor.Effect) {
	if !state.Mounted || ev.MountGen != state.MountGen || !ev.Kind.Valid() {
		return state, nil
	}
	return applyKind(state, ev.Kind, nil)
}

// applyKind switches the chosen wallet kind. A session built for another
// kind is discarded.
func applyKind(state State, kind wallet.Kind, effects []actor.Effect) (State, []actor.Effect) {
	if kind == state.Kind {
		return state, effects
	}
	if state.Session != nil && state.Session.Kind() != kind {
		state.Session = nil
		effects = append(effects, effSetBalances{})
	}
	state.Kind = kind
	state.Drifted = false
	state = trackAddress(state)

	if state.HasProvider {
		effects = append(effects, effReadProvider{Gen: state.ProviderGen})
	}
	return state, effects
}

func reduceLogout(state State) (State, []actor.Effect) {
	var effects []actor.Effect
	state, effects = cancelBuild(state, effects)

	state.Session = nil
	state.Kind = ""
	state.CurAddress = ""
	state.Drifted = false
	state.FailedKey = ""
	state.Error = ""
	state.AccessModalOpen = false

	effects = append(effects,
		effSetBalances{},
		effShowHint{},
		effRemoveWalletKind{},
	)
	return state, effects
}

func reduceRetry(state State) (State, []actor.Effect) {
	state.FailedKey = ""
	if state.Error != "" && state.Error != state.Target.MismatchMessage() {
		state.Error = ""
	}
	return state, nil
}
