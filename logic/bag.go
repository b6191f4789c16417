package logic

// ReduceBag computes the next bag from the current one.
//
// AddToBag appends without a uniqueness check. RemoveFromBag drops the first
// matching id and leaves the rest in order; a missing id is a no-op. Every
// other action returns state unchanged.
func ReduceBag(state []string, action Action) []string {
	switch a := action.(type) {
	case AddToBag:
		next := make([]string, len(state), len(state)+1)
		copy(next, state)
		return append(next, a.ID)

	case RemoveFromBag:
		idx := indexOf(state, a.ID)
		if idx < 0 {
			return state
		}
		next := make([]string, 0, len(state)-1)
		next = append(next, state[:idx]...)
		return append(next, state[idx+1:]...)

	default:
		return state
	}
}

// InitialBag is the bag before any action.
func InitialBag() []string {
	return []string{}
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
