package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/logic"
	"storefront/store"
)

var printer = protojson.MarshalOptions{Multiline: true, Indent: "  "}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <type> [json-payload]",
	Short: "Dispatch an action and print the resulting state",
	Long: `Sends one action to the store. The payload is JSON, for example:

  storefront dispatch bag/addToBag '"1"'
  storefront dispatch loading/toggleLoading false
  storefront dispatch items/addInitialItem '[{"id":"1","item_name":"Shirt","current_price":800,"original_price":1000}]'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildAction(args)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *store.Client) error {
			state, err := c.DispatchRaw(ctx, req)
			if err != nil {
				return err
			}
			return printState(cmd, state)
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *store.Client) error {
			state, err := c.State(ctx)
			if err != nil {
				return err
			}
			return printState(cmd, state)
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the bag price breakdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *store.Client) error {
			summary, err := c.Summary(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if summary.Empty() {
				fmt.Fprintln(out, "Bag is empty")
				return nil
			}
			fmt.Fprintf(out, "Items:           %d\n", summary.TotalItems)
			fmt.Fprintf(out, "Total MRP:       %d\n", summary.TotalMRP)
			fmt.Fprintf(out, "Discount:        -%d\n", summary.TotalDiscount)
			fmt.Fprintf(out, "Convenience fee: %d\n", summary.ConvenienceFee)
			fmt.Fprintf(out, "Total:           %d\n", summary.FinalPayment)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream every new state until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := store.Dial(cfg.Server.DialTarget())
		if err != nil {
			return err
		}
		defer c.Close()

		err = c.Subscribe(ctx, func(state logic.State) error {
			return printState(cmd, state)
		})
		if ctx.Err() != nil && status.Code(err) == codes.Canceled {
			return nil
		}
		return err
	},
}

// buildAction turns command line arguments into a {type, payload} message.
func buildAction(args []string) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		logic.FieldType: structpb.NewStringValue(args[0]),
	}
	if len(args) > 1 {
		payload := &structpb.Value{}
		if err := protojson.Unmarshal([]byte(args[1]), payload); err != nil {
			return nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		fields[logic.FieldPayload] = payload
	}
	return &structpb.Struct{Fields: fields}, nil
}

func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *store.Client) error) error {
	c, err := store.Dial(cfg.Server.DialTarget())
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := fn(ctx, c); err != nil {
		if st, ok := status.FromError(err); ok {
			return errors.New(st.Code().String() + ": " + st.Message())
		}
		return err
	}
	return nil
}

func printState(cmd *cobra.Command, state logic.State) error {
	msg, err := logic.EncodeState(state)
	if err != nil {
		return err
	}
	raw, err := printer.Marshal(msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
