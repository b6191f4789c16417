package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/logic"
)

// gRPC names for the store service.
const (
	ServiceName       = "storefront.Store"
	MethodDispatch    = "/" + ServiceName + "/Dispatch"
	MethodGetState    = "/" + ServiceName + "/GetState"
	MethodGetSummary  = "/" + ServiceName + "/GetSummary"
	MethodSubscribe   = "/" + ServiceName + "/Subscribe"
	ErrMsgServiceDone = "store service is shutting down"
)

// StoreServer is the server API for the storefront.Store service. Messages are
// protobuf well-known types: actions and states travel as Struct.
type StoreServer interface {
	Dispatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Subscribe(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// Service implements StoreServer on top of a Store.
type Service struct {
	store          *Store
	logger         *zap.Logger
	convenienceFee int

	closeOnce sync.Once
	done      chan struct{}
}

// NewService wraps store. convenienceFee is charged by GetSummary on a
// non-empty bag.
func NewService(store *Store, logger *zap.Logger, convenienceFee int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		logger:         logger,
		convenienceFee: convenienceFee,
		done:           make(chan struct{}),
	}
}

// Register adds the service to a gRPC server.
func (svc *Service) Register(server *grpc.Server) {
	server.RegisterService(&storeServiceDesc, svc)
}

// Close ends every open Subscribe stream so the server can stop gracefully.
func (svc *Service) Close() {
	svc.closeOnce.Do(func() { close(svc.done) })
}

func (svc *Service) Dispatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	action, err := logic.DecodeAction(req)
	if err != nil {
		svc.logger.Warn("rejected action", zap.Error(err))
		return nil, MapCommandError(err)
	}

	switch a := action.(type) {
	case logic.AddToBag:
		svc.logger.Info("adding to bag", zap.String("item_id", a.ID))
	case logic.RemoveFromBag:
		svc.logger.Info("removing from bag", zap.String("item_id", a.ID))
	case logic.AddInitialItems:
		svc.logger.Info("loading catalog", zap.Int("items", len(a.Items)))
	case logic.ToggleLoading:
		svc.logger.Info("setting loading flag", zap.Bool("loading", a.Value))
	case logic.Unknown:
		svc.logger.Debug("ignoring unknown action", zap.String("type", a.Name))
	}

	state := svc.store.Dispatch(action)
	return encodeState(state)
}

func (svc *Service) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeState(svc.store.State())
}

func (svc *Service) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary := logic.Summarize(svc.store.State(), svc.convenienceFee)
	msg, err := structpb.NewStruct(map[string]interface{}{
		"total_items":     summary.TotalItems,
		"total_mrp":       summary.TotalMRP,
		"total_discount":  summary.TotalDiscount,
		"convenience_fee": summary.ConvenienceFee,
		"final_payment":   summary.FinalPayment,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode summary: %v", err)
	}
	return msg, nil
}

// Subscribe streams the current state and then every new one. A slow reader
// only sees the latest state, never a backlog.
func (svc *Service) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	latest := newLatestState()
	unsubscribe := svc.store.SubscribeWithCurrent(latest.offer)
	defer unsubscribe()

	svc.logger.Info("subscriber connected")
	defer svc.logger.Info("subscriber disconnected")

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-svc.done:
			return status.Error(codes.Unavailable, ErrMsgServiceDone)
		case <-latest.ready:
			msg, err := encodeState(latest.take())
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func encodeState(state logic.State) (*structpb.Struct, error) {
	msg, err := logic.EncodeState(state)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode state: %v", err)
	}
	return msg, nil
}

// latestState is a one-slot mailbox: offer overwrites, take empties.
type latestState struct {
	mu    sync.Mutex
	state logic.State
	ready chan struct{}
}

func newLatestState() *latestState {
	return &latestState{ready: make(chan struct{}, 1)}
}

func (l *latestState) offer(state logic.State) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latestState) take() logic.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

var storeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Dispatch", Handler: dispatchHandler},
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "GetSummary", Handler: getSummaryHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "storefront/store.proto",
}

func dispatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodDispatch}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Dispatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetState}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).GetState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getSummaryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).GetSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetSummary}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).GetSummary(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StoreServer).Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
