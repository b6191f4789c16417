// Package store holds the storefront state container and exposes it over
// gRPC.
//
// Store serializes dispatches: each action is reduced, the state replaced and
// every subscriber notified before the next dispatch starts.
package store

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/logic"
)

// Listener receives the full state after every dispatch. The state passed in
// is a private copy. Listeners run while the store is locked and must not
// call Dispatch themselves.
type Listener func(state logic.State)

type subscriber struct {
	id       string
	listener Listener
}

// Store composes the loading, catalog and bag containers.
type Store struct {
	mu          sync.Mutex
	state       logic.State
	subscribers []subscriber
	dispatched  uint64
	logger      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActions starts the store from the given actions replayed over the
// initial state.
func WithActions(actions ...logic.Action) Option {
	return func(s *Store) {
		s.state = logic.Replay(actions...)
	}
}

// New creates a store holding logic.InitialState().
func New(opts ...Option) *Store {
	s := &Store{
		state:  logic.InitialState(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies the action and returns a copy of the resulting state.
func (s *Store) Dispatch(action logic.Action) logic.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = logic.Reduce(s.state, action)
	s.dispatched++

	if ce := s.logger.Check(zap.DebugLevel, "dispatched"); ce != nil {
		actionType := "<nil>"
		if action != nil {
			actionType = action.Type()
		}
		ce.Write(
			zap.String("type", actionType),
			zap.Uint64("seq", s.dispatched),
			zap.Bool("loading", s.state.Loading),
			zap.Int("catalog", len(s.state.Catalog)),
			zap.Int("bag", len(s.state.Bag)),
		)
	}

	for _, sub := range s.subscribers {
		sub.listener(s.state.Clone())
	}
	return s.state.Clone()
}

// State returns a copy of the current state.
func (s *Store) State() logic.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatched is the number of actions dispatched so far.
func (s *Store) Dispatched() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatched
}

// Subscribe registers a listener and returns the function that removes it.
// Listeners are called in registration order.
func (s *Store) Subscribe(listener Listener) (unsubscribe func()) {
	return s.subscribe(listener, false)
}

// SubscribeWithCurrent is Subscribe, except the listener is first called with
// the current state. Both happen under the store lock, so no dispatch can fall
// between the snapshot and the registration.
func (s *Store) SubscribeWithCurrent(listener Listener) (unsubscribe func()) {
	return s.subscribe(listener, true)
}

func (s *Store) subscribe(listener Listener, current bool) func() {
	id := uuid.NewString()

	s.mu.Lock()
	s.subscribers = append(s.subscribers, subscriber{id: id, listener: listener})
	count := len(s.subscribers)
	if current {
		listener(s.state.Clone())
	}
	s.mu.Unlock()

	s.logger.Debug("subscribed", zap.String("subscription_id", id), zap.Int("subscribers", count))

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub.id == id {
			s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
			break
		}
	}
	s.logger.Debug("unsubscribed", zap.String("subscription_id", id), zap.Int("subscribers", len(s.subscribers)))
}

// Subscribers is the number of registered listeners.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
