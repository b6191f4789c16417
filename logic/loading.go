package logic

// ReduceLoading sets the flag to the ToggleLoading payload.
func ReduceLoading(state bool, action Action) bool {
	if a, ok := action.(ToggleLoading); ok {
		return a.Value
	}
	return state
}

// InitialLoading is true: the UI assumes a fetch is pending until told
// otherwise.
func InitialLoading() bool {
	return true
}
