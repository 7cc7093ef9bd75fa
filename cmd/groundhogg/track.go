package main

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/birbparty/groundhogg-go/sdk"
)

// parseValue decodes v as a JSON scalar or document when it is one, so
// --data amount=19.99 sends a number and --data ok=true a boolean.
func parseValue(v string) any {
	var decoded any
	if err := json.Unmarshal([]byte(v), &decoded); err == nil {
		return decoded
	}
	return v
}

func dataMap(pairs map[string]string) map[string]any {
	if len(pairs) == 0 {
		return nil
	}
	data := make(map[string]any, len(pairs))
	for k, v := range pairs {
		data[k] = parseValue(v)
	}
	return data
}

type trackFunc func(ctx context.Context, args []string, data map[string]any) (map[string]any, error)

func newTrackCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Send tracking events for the current contact",
	}

	cmd.AddCommand(
		c.trackCmd("page-view", "Record a page view", cobra.NoArgs, sdk.EventPageView,
			func(ctx context.Context, _ []string, data map[string]any) (map[string]any, error) {
				return c.sdk.Tracker.PageView(ctx, data)
			}),
		c.trackCmd("event <name>", "Record a custom event", cobra.ExactArgs(1), "",
			func(ctx context.Context, args []string, data map[string]any) (map[string]any, error) {
				return c.sdk.Tracker.CustomEvent(ctx, args[0], data)
			}),
		c.trackCmd("form-submission <form-id>", "Record a form submission", cobra.ExactArgs(1), sdk.EventFormSubmission,
			func(ctx context.Context, args []string, data map[string]any) (map[string]any, error) {
				return c.sdk.Tracker.FormSubmission(ctx, args[0], data)
			}),
		c.trackCmd("button-click <button-id>", "Record a button click", cobra.ExactArgs(1), sdk.EventButtonClick,
			func(ctx context.Context, args []string, data map[string]any) (map[string]any, error) {
				return c.sdk.Tracker.ButtonClick(ctx, args[0], data)
			}),
		c.trackCmd("product-view <product-id>", "Record a product view", cobra.ExactArgs(1), sdk.EventProductView,
			func(ctx context.Context, args []string, data map[string]any) (map[string]any, error) {
				return c.sdk.Tracker.ProductView(ctx, args[0], data)
			}),
		c.trackCmd("purchase <order-id> <amount>", "Record a purchase", cobra.ExactArgs(2), sdk.EventPurchase,
			func(ctx context.Context, args []string, data map[string]any) (map[string]any, error) {
				amount, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return nil, userErrorf("invalid amount %q", args[1])
				}
				return c.sdk.Tracker.Purchase(ctx, args[0], amount, data)
			}),
		newAddToCartCmd(c),
	)
	return cmd
}

func (c *cli) trackCmd(use, short string, positional cobra.PositionalArgs, event string, fn trackFunc) *cobra.Command {
	var pairs map[string]string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  positional,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := fn(cmd.Context(), args, dataMap(pairs))
			if err != nil {
				return err
			}
			name := event
			if name == "" {
				name = args[0]
			}
			return c.printTracked(name, resp)
		},
	}
	cmd.Flags().StringToStringVar(&pairs, "data", nil, "event data, KEY=VALUE (repeatable)")
	return cmd
}

func newAddToCartCmd(c *cli) *cobra.Command {
	var quantity int
	cmd := c.trackCmd("add-to-cart <product-id>", "Record an add to cart", cobra.ExactArgs(1), sdk.EventAddToCart,
		func(ctx context.Context, args []string, data map[string]any) (map[string]any, error) {
			if quantity < 1 {
				return nil, userErrorf("--quantity must be at least 1")
			}
			return c.sdk.Tracker.AddToCart(ctx, args[0], quantity, data)
		})
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of items")
	return cmd
}

func (c *cli) printTracked(event string, resp map[string]any) error {
	if c.jsonOut {
		return c.printJSON(resp)
	}
	c.success("Tracked %s", event)
	return nil
}
