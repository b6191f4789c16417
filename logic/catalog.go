package logic

// ReduceCatalog replaces the catalog on AddInitialItems, keeping the given
// order and every field verbatim. The payload is copied so the caller's slice
// is never shared with the store. Other actions return state unchanged.
func ReduceCatalog(state []Item, action Action) []Item {
	switch a := action.(type) {
	case AddInitialItems:
		next := make([]Item, len(a.Items))
		copy(next, a.Items)
		return next
	default:
		return state
	}
}

// InitialCatalog is the empty catalog shown before the backend responds.
func InitialCatalog() []Item {
	return []Item{}
}
