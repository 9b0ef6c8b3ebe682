package actor

// Replay folds inputs through reducer starting at state, returning the final
// state and the concatenated effects. It lets reducer tests drive long event
// sequences without a running loop or runtime.
func Replay[S any](state S, inputs []Input, reducer ReducerFunc[S]) (S, []Effect) {
	var all []Effect
	for _, in := range inputs {
		var effects []Effect
		state, effects = reducer(state, in)
		all = append(all, effects...)
	}
	return state, all
}
