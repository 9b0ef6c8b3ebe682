package reconciler

import (
	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/wallet"
)

func reduceAccountsChanged(state State, ev evAccountsChanged) (State, []actor.Effect) {
	if !state.HasProvider || ev.ProviderGen != state.ProviderGen {
		return state, nil
	}
	state.SelectedAddress = ev.SelectedAddress
	state.NetworkVersion = ev.NetworkVersion
	state = trackAddress(state)

	return detectDrift(state)
}

// detectDrift discards a session whose bound address no longer matches the
// provider's selected account and asks the user to sign in again. A locked
// provider reporting no account counts as a mismatch.
//
// The wallet kind is persisted and read back before the session is dropped;
// the read-back re-asserts the kind from storage.
func detectDrift(state State) (State, []actor.Effect) {
	if !state.guarded() || state.Session == nil {
		return state, nil
	}
	if wallet.SameAddress(state.Session.Address(), state.SelectedAddress) {
		return state, nil
	}

	state.Session = nil
	state.Drifted = true
	state.AccessModalOpen = true

	return state, []actor.Effect{
		effPersistWalletKind{Kind: state.Kind, Reread: true, MountGen: state.MountGen},
		effSetBalances{},
	}
}
