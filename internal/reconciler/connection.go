package reconciler

import "github.com/bhandras/zkdash/internal/actor"

// HintConnected is shown once when an address appears for a chosen kind.
const HintConnected = "Connected! Complete sign-in in the pop-up"

// trackAddress copies the provider's address into CurAddress while both a
// provider and a wallet kind are present.
func trackAddress(state State) State {
	if !state.HasProvider || state.Kind == "" {
		return state
	}
	state.CurAddress = state.SelectedAddress
	return state
}

func reduceProviderSnapshot(state State, ev evProviderSnapshot) (State, []actor.Effect) {
	if !state.HasProvider || ev.ProviderGen != state.ProviderGen {
		return state, nil
	}
	state.SelectedAddress = ev.SelectedAddress
	state.NetworkVersion = ev.NetworkVersion
	return trackAddress(state), nil
}

// reducePollTick adopts the provider's address when none is tracked and a
// kind is chosen. It covers notifications the provider failed to deliver.
func reducePollTick(state State, ev evPollTick) (State, []actor.Effect) {
	if !state.Mounted || !state.HasProvider || state.Kind == "" || ev.ProviderGen != state.ProviderGen {
		return state, nil
	}
	if state.CurAddress != "" || ev.SelectedAddress == "" {
		return state, nil
	}
	state.SelectedAddress = ev.SelectedAddress
	state.CurAddress = ev.SelectedAddress
	return state, nil
}

// appendHint emits the connected hint on the absent->present edge of
// CurAddress while a kind is chosen.
func appendHint(prev, next State, effects []actor.Effect) []actor.Effect {
	if prev.CurAddress != "" || next.CurAddress == "" || next.Kind == "" {
		return effects
	}
	return append(effects, effShowHint{Text: HintConnected})
}
