package reconciler

import (
	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/provider"
)

// reconcileSubscriptions makes the live provider subscriptions follow the
// guard condition. While guarded, the provider's auto-refresh is disabled
// once per provider per mount before the first subscription.
func reconcileSubscriptions(state State, effects []actor.Effect) (State, []actor.Effect) {
	if !state.guarded() {
		return dropSubscriptions(state, effects)
	}

	if state.AutoRefreshDisabledGen != state.ProviderGen {
		state.AutoRefreshDisabledGen = state.ProviderGen
		effects = append(effects, effDisableAutoRefresh{})
	}
	if !state.NetworkSubscribed {
		state.NetworkSubscribed = true
		effects = append(effects, effSubscribe{Event: provider.EventNetworkChanged, Gen: state.ProviderGen})
	}
	if !state.AccountsSubscribed {
		state.AccountsSubscribed = true
		effects = append(effects, effSubscribe{Event: provider.EventAccountsChanged, Gen: state.ProviderGen})
	}
	return state, effects
}

func dropSubscriptions(state State, effects []actor.Effect) (State, []actor.Effect) {
	if state.NetworkSubscribed {
		state.NetworkSubscribed = false
		effects = append(effects, effUnsubscribe{Event: provider.EventNetworkChanged})
	}
	if state.AccountsSubscribed {
		state.AccountsSubscribed = false
		effects = append(effects, effUnsubscribe{Event: provider.EventAccountsChanged})
	}
	return state, effects
}

// reduceNetworkChanged applies the network guard. The runtime also delivers
// this event right after subscribing so the current network is checked.
func reduceNetworkChanged(state State, ev evNetworkChanged) (State, []actor.Effect) {
	if !state.HasProvider || ev.ProviderGen != state.ProviderGen {
		return state, nil
	}
	state.NetworkVersion = ev.NetworkVersion
	state.SelectedAddress = ev.SelectedAddress
	state = trackAddress(state)

	if !state.guarded() {
		return state, nil
	}
	if state.NetworkVersion != state.Target.ID {
		state.Error = state.Target.MismatchMessage()
	} else {
		state.Error = ""
	}
	return detectDrift(state)
}
