package reconciler

import "github.com/bhandras/zkdash/internal/actor"

// publishChanges appends one store write per field that changed between
// prev and next. The store is a projection; it never feeds back into State.
func publishChanges(prev, next State, effects []actor.Effect) []actor.Effect {
	if prev.Kind != next.Kind {
		effects = append(effects, effSetWalletKind{Kind: next.Kind})
	}
	if prev.Session != next.Session {
		effects = append(effects, effSetSession{Session: next.Session})
	}
	if prev.Error != next.Error {
		effects = append(effects, effSetError{Message: next.Error})
	}
	if prev.AccessModalOpen != next.AccessModalOpen {
		effects = append(effects, effSetAccessModal{Open: next.AccessModalOpen})
	}

	if prev.HasProvider != next.HasProvider ||
		prev.NetworkVersion != next.NetworkVersion ||
		prev.CurAddress != next.CurAddress ||
		prev.Phase() != next.Phase() {

		effects = append(effects, effSyncConnection{
			ProviderAttached: next.HasProvider,
			NetworkVersion:   next.NetworkVersion,
			Address:          next.CurAddress,
			Phase:            next.Phase(),
		})
	}
	return effects
}
