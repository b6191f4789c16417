package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/logic"
)

// Client talks to a storefront.Store service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target. Without options the connection is insecure.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Dispatch sends an action and returns the state after it was applied.
func (c *Client) Dispatch(ctx context.Context, action logic.Action) (logic.State, error) {
	req, err := logic.EncodeAction(action)
	if err != nil {
		return logic.State{}, err
	}
	return c.DispatchRaw(ctx, req)
}

// DispatchRaw sends an already encoded {type, payload} action.
func (c *Client) DispatchRaw(ctx context.Context, req *structpb.Struct) (logic.State, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodDispatch, req, resp); err != nil {
		return logic.State{}, err
	}
	return logic.DecodeState(resp)
}

// State fetches the current state.
func (c *Client) State(ctx context.Context) (logic.State, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodGetState, &emptypb.Empty{}, resp); err != nil {
		return logic.State{}, err
	}
	return logic.DecodeState(resp)
}

// Summary fetches the bag price breakdown.
func (c *Client) Summary(ctx context.Context) (logic.BagSummary, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodGetSummary, &emptypb.Empty{}, resp); err != nil {
		return logic.BagSummary{}, err
	}
	f := resp.GetFields()
	return logic.BagSummary{
		TotalItems:     int(f["total_items"].GetNumberValue()),
		TotalMRP:       int(f["total_mrp"].GetNumberValue()),
		TotalDiscount:  int(f["total_discount"].GetNumberValue()),
		ConvenienceFee: int(f["convenience_fee"].GetNumberValue()),
		FinalPayment:   int(f["final_payment"].GetNumberValue()),
	}, nil
}

// Subscribe calls fn with every state the server streams until ctx is done,
// the server ends the stream, or fn returns an error.
func (c *Client) Subscribe(ctx context.Context, fn func(logic.State) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	desc := &storeServiceDesc.Streams[0]
	cs, err := c.conn.NewStream(ctx, desc, MethodSubscribe)
	if err != nil {
		return err
	}
	stream := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: cs}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		state, err := logic.DecodeState(msg)
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
	}
}
