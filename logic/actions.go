package logic

import "strings"

// Namespaces route an action to the container that owns it.
const (
	NamespaceBag     = "bag"
	NamespaceItems   = "items"
	NamespaceLoading = "loading"
)

// Wire action types.
const (
	TypeAddToBag        = NamespaceBag + "/addToBag"
	TypeRemoveFromBag   = NamespaceBag + "/removeFromBag"
	TypeAddInitialItems = NamespaceItems + "/addInitialItem"
	TypeToggleLoading   = NamespaceLoading + "/toggleLoading"
)

// Action is a closed set of state transitions. Only the variants in this
// package implement it.
type Action interface {
	// Type is the namespaced wire name, e.g. "bag/addToBag".
	Type() string
	// Namespace is the key of the container that handles the action.
	Namespace() string
	isAction()
}

// AddToBag appends an item id to the bag.
type AddToBag struct {
	ID string
}

// RemoveFromBag removes the first occurrence of an item id from the bag.
type RemoveFromBag struct {
	ID string
}

// AddInitialItems replaces the catalog.
type AddInitialItems struct {
	Items []Item
}

// ToggleLoading sets the loading flag to Value. Despite the name it does not
// complement the current flag.
type ToggleLoading struct {
	Value bool
}

// Unknown carries a wire type no container recognises. Every reducer treats
// it as a no-op.
type Unknown struct {
	Name string
}

func (AddToBag) Type() string        { return TypeAddToBag }
func (RemoveFromBag) Type() string   { return TypeRemoveFromBag }
func (AddInitialItems) Type() string { return TypeAddInitialItems }
func (ToggleLoading) Type() string   { return TypeToggleLoading }
func (u Unknown) Type() string       { return u.Name }

func (AddToBag) Namespace() string        { return NamespaceBag }
func (RemoveFromBag) Namespace() string   { return NamespaceBag }
func (AddInitialItems) Namespace() string { return NamespaceItems }
func (ToggleLoading) Namespace() string   { return NamespaceLoading }
func (u Unknown) Namespace() string       { return namespaceOf(u.Name) }

func (AddToBag) isAction()        {}
func (RemoveFromBag) isAction()   {}
func (AddInitialItems) isAction() {}
func (ToggleLoading) isAction()   {}
func (Unknown) isAction()         {}

func namespaceOf(actionType string) string {
	namespace, _, found := strings.Cut(actionType, "/")
	if !found {
		return ""
	}
	return namespace
}
