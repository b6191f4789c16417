package logic

// State is the aggregate of the three containers. Each field is owned by
// exactly one reducer.
type State struct {
	Loading bool
	Catalog []Item
	Bag     []string
}

// InitialState is the state before any dispatch: loading, empty catalog,
// empty bag.
func InitialState() State {
	return State{
		Loading: InitialLoading(),
		Catalog: InitialCatalog(),
		Bag:     InitialBag(),
	}
}

// Reduce routes the action to the container named by its namespace and
// returns the new aggregate. Containers never see each other's state, and an
// action whose namespace matches no container leaves the state unchanged.
func Reduce(state State, action Action) State {
	if action == nil {
		return state
	}
	next := state
	switch action.Namespace() {
	case NamespaceBag:
		next.Bag = ReduceBag(state.Bag, action)
	case NamespaceItems:
		next.Catalog = ReduceCatalog(state.Catalog, action)
	case NamespaceLoading:
		next.Loading = ReduceLoading(state.Loading, action)
	}
	return next
}

// Replay folds actions over the initial state.
func Replay(actions ...Action) State {
	state := InitialState()
	for _, action := range actions {
		state = Reduce(state, action)
	}
	return state
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := State{
		Loading: s.Loading,
		Catalog: make([]Item, len(s.Catalog)),
		Bag:     make([]string, len(s.Bag)),
	}
	copy(out.Catalog, s.Catalog)
	copy(out.Bag, s.Bag)
	return out
}
