package store

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/logic"
)

const testTimeout = 5 * time.Second

// startService serves svc over an in-memory listener and returns a client.
// Everything is torn down when the test ends.
func startService(t *testing.T, svc *Service) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, lis, svc.Register, ServerOptions{ServiceName: ServiceName, OnShutdown: svc.Close}, zap.NewNop())
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		assert.NoError(t, <-errCh)
	})
	return NewClient(conn)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestService_initialState(t *testing.T) {
	client := startService(t, NewService(New(), nil, logic.DefaultConvenienceFee))

	state, err := client.State(testContext(t))
	require.NoError(t, err)

	assert.True(t, state.Loading)
	assert.Empty(t, state.Catalog)
	assert.Empty(t, state.Bag)
}

func TestService_dispatchShoppingFlow(t *testing.T) {
	client := startService(t, NewService(New(), nil, logic.DefaultConvenienceFee))
	ctx := testContext(t)

	actions := []logic.Action{
		logic.AddInitialItems{Items: []logic.Item{{ID: "1"}, {ID: "2"}}},
		logic.ToggleLoading{Value: false},
		logic.AddToBag{ID: "1"},
		logic.RemoveFromBag{ID: "1"},
	}
	var state logic.State
	for _, action := range actions {
		var err error
		state, err = client.Dispatch(ctx, action)
		require.NoError(t, err, action.Type())
	}

	assert.False(t, state.Loading)
	assert.Len(t, state.Catalog, 2)
	assert.Equal(t, []string{}, state.Bag)
}

func TestService_unknownActionIsNoop(t *testing.T) {
	client := startService(t, NewService(New(), nil, logic.DefaultConvenienceFee))
	ctx := testContext(t)

	req, err := structpb.NewStruct(map[string]interface{}{"type": "@@INIT"})
	require.NoError(t, err)

	state, err := client.DispatchRaw(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, logic.InitialState(), state)
}

func TestService_malformedPayloadIsInvalidArgument(t *testing.T) {
	s := New()
	client := startService(t, NewService(s, nil, logic.DefaultConvenienceFee))
	ctx := testContext(t)

	req, err := structpb.NewStruct(map[string]interface{}{"type": logic.TypeToggleLoading, "payload": "false"})
	require.NoError(t, err)

	_, err = client.DispatchRaw(ctx, req)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, uint64(0), s.Dispatched())
}

func TestService_summary(t *testing.T) {
	s := New(WithActions(
		logic.AddInitialItems{Items: twoItems()},
		logic.AddToBag{ID: "item-1"},
		logic.AddToBag{ID: "item-2"},
	))
	client := startService(t, NewService(s, nil, 99))

	summary, err := client.Summary(testContext(t))
	require.NoError(t, err)

	assert.Equal(t, logic.BagSummary{
		TotalItems:     2,
		TotalMRP:       2500,
		TotalDiscount:  500,
		ConvenienceFee: 99,
		FinalPayment:   2099,
	}, summary)
}

// stateRecorder collects streamed states and lets a test wait for one.
type stateRecorder struct {
	mu     sync.Mutex
	states []logic.State
	notify chan struct{}
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{notify: make(chan struct{}, 1)}
}

func (r *stateRecorder) record(state logic.State) error {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *stateRecorder) waitFor(t *testing.T, match func(logic.State) bool) {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		r.mu.Lock()
		for _, s := range r.states {
			if match(s) {
				r.mu.Unlock()
				return
			}
		}
		r.mu.Unlock()
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatal("timed out waiting for streamed state")
		}
	}
}

func TestService_subscribeStreamsStates(t *testing.T) {
	s := New()
	client := startService(t, NewService(s, nil, logic.DefaultConvenienceFee))

	ctx, cancel := context.WithCancel(testContext(t))
	rec := newStateRecorder()
	done := make(chan error, 1)
	go func() { done <- client.Subscribe(ctx, rec.record) }()

	rec.waitFor(t, func(s logic.State) bool { return s.Loading && len(s.Bag) == 0 })

	s.Dispatch(logic.ToggleLoading{Value: false})
	s.Dispatch(logic.AddToBag{ID: "item-1"})

	rec.waitFor(t, func(s logic.State) bool {
		return !s.Loading && len(s.Bag) == 1 && s.Bag[0] == "item-1"
	})

	cancel()
	err := <-done
	assert.Equal(t, codes.Canceled, status.Code(err))
	assert.Eventually(t, func() bool { return s.Subscribers() == 0 }, testTimeout, 10*time.Millisecond)
}

func TestService_closeEndsSubscriptions(t *testing.T) {
	s := New()
	svc := NewService(s, nil, logic.DefaultConvenienceFee)
	client := startService(t, svc)

	rec := newStateRecorder()
	done := make(chan error, 1)
	go func() { done <- client.Subscribe(testContext(t), rec.record) }()
	rec.waitFor(t, func(logic.State) bool { return true })

	svc.Close()

	select {
	case err := <-done:
		assert.Equal(t, codes.Unavailable, status.Code(err))
	case <-time.After(testTimeout):
		t.Fatal("subscription did not end")
	}
}

func TestService_subscriberErrorStopsStream(t *testing.T) {
	client := startService(t, NewService(New(), nil, logic.DefaultConvenienceFee))
	stop := errors.New("stop")

	err := client.Subscribe(testContext(t), func(logic.State) error { return stop })

	assert.ErrorIs(t, err, stop)
}

// recordingStream keeps the last state a Subscribe call sent.
type recordingStream struct {
	grpc.ServerStream
	ctx context.Context

	mu   sync.Mutex
	last *structpb.Struct
}

func (r *recordingStream) Context() context.Context { return r.ctx }

func (r *recordingStream) Send(msg *structpb.Struct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = msg
	return nil
}

func (r *recordingStream) lastState() (logic.State, bool) {
	r.mu.Lock()
	msg := r.last
	r.mu.Unlock()
	if msg == nil {
		return logic.State{}, false
	}
	state, err := logic.DecodeState(msg)
	return state, err == nil
}

func TestService_subscribeConvergesUnderConcurrentDispatch(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := New()
		svc := NewService(s, nil, logic.DefaultConvenienceFee)
		ctx, cancel := context.WithCancel(context.Background())
		stream := &recordingStream{ctx: ctx}

		start := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			<-start
			done <- svc.Subscribe(&emptypb.Empty{}, stream)
		}()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.Dispatch(logic.AddToBag{ID: "item-1"})
		}()
		close(start)
		wg.Wait()

		want := s.State()
		require.Eventually(t, func() bool {
			got, ok := stream.lastState()
			return ok && got.Loading == want.Loading && assert.ObjectsAreEqual(want.Bag, got.Bag)
		}, testTimeout, time.Millisecond, "iteration %d: stream never caught up with the store", i)

		cancel()
		require.NoError(t, <-done)
	}
}
