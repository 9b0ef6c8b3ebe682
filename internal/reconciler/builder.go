package reconciler

import (
	"strconv"
	"strings"

	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/wallet"
)

// buildKey returns the identity of the build the current state calls for,
// or false when no build should run.
//
// The extension kind needs a known address on the target network. Other
// kinds are assumed pre-validated and only need to be chosen.
func buildKey(state State) (string, bool) {
	if !state.Mounted || state.Session != nil || !state.Kind.Valid() {
		return "", false
	}
	if !state.Kind.IsExtension() {
		return string(state.Kind), true
	}
	if !state.HasProvider || state.CurAddress == "" || state.NetworkVersion != state.Target.ID {
		return "", false
	}
	return strings.Join([]string{
		string(state.Kind),
		strings.ToLower(state.CurAddress),
		state.NetworkVersion,
		strconv.FormatInt(state.ProviderGen, 10),
	}, "|"), true
}

// evaluateBuild starts, keeps or cancels the session build.
//
// At most one build is in flight. A build whose inputs changed is cancelled
// and, when the trigger still holds, replaced. A failed key is not retried.
func evaluateBuild(state State, effects []actor.Effect) (State, []actor.Effect) {
	key, ok := buildKey(state)

	if state.BuildInFlight {
		if ok && key == state.BuildKey {
			return state, effects
		}
		state, effects = cancelBuild(state, effects)
	}
	if !ok || key == state.FailedKey {
		return state, effects
	}

	req := wallet.BuildRequest{Kind: state.Kind}
	if state.Kind.IsExtension() {
		req.Address = state.CurAddress
	}

	state.BuildGen++
	state.BuildInFlight = true
	state.BuildKey = key
	effects = append(effects, effStartBuild{Gen: state.BuildGen, Request: req})
	return state, effects
}

// cancelBuild abandons the in-flight build. Bumping BuildGen makes its
// eventual completion stale.
func cancelBuild(state State, effects []actor.Effect) (State, []actor.Effect) {
	if !state.BuildInFlight {
		return state, effects
	}
	effects = append(effects, effCancelBuild{Gen: state.BuildGen})
	state.BuildGen++
	state.BuildInFlight = false
	state.BuildKey = ""
	return state, effects
}

func (s State) isCurrentBuild(gen int64) bool {
	return s.BuildInFlight && gen == s.BuildGen
}

func reduceBuildSucceeded(state State, ev evBuildSucceeded) (State, []actor.Effect) {
	if !state.isCurrentBuild(ev.Gen) {
		return state, nil
	}
	if ev.Result == nil || ev.Result.Session == nil {
		return failBuild(state, ErrSessionAddressMismatch)
	}
	session := ev.Result.Session
	if state.Kind.IsExtension() && !wallet.SameAddress(session.Address(), state.CurAddress) {
		return failBuild(state, ErrSessionAddressMismatch)
	}

	state.BuildInFlight = false
	state.BuildKey = ""
	state.FailedKey = ""
	state.Session = session
	state.Drifted = false
	return state, []actor.Effect{effSetBalances{Balances: ev.Result.Balances}}
}

func reduceBuildFailed(state State, ev evBuildFailed) (State, []actor.Effect) {
	if !state.isCurrentBuild(ev.Gen) {
		return state, nil
	}
	return failBuild(state, ev.Err)
}

func failBuild(state State, err error) (State, []actor.Effect) {
	state.FailedKey = state.BuildKey
	state.BuildInFlight = false
	state.BuildKey = ""
	state.Error = buildFailureMessage(err)
	return state, nil
}
