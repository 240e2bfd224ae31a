package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/Julie-03/Kapee/internal/app"
	"github.com/Julie-03/Kapee/internal/cart"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type lineView struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartView struct {
	Lines      []lineView      `json:"lines"`
	ItemCount  int             `json:"itemCount"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func viewCart(e *cart.Engine) cartView {
	lines := e.Lines()
	v := cartView{
		Lines:      make([]lineView, 0, len(lines)),
		ItemCount:  e.TotalItemCount(),
		TotalPrice: e.TotalPrice(),
	}
	for _, l := range lines {
		v.Lines = append(v.Lines, lineView{
			ProductID: l.ID,
			Title:     l.Title,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}
	return v
}

func (v cartView) render(w io.Writer) {
	if len(v.Lines) == 0 {
		fmt.Fprintln(w, "Cart is empty")
		return
	}
	for _, l := range v.Lines {
		fmt.Fprintf(w, "%s\t%s\tx%d\t%s\t%s\n", l.ProductID, l.Title, l.Quantity,
			l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(w, "items: %d\ntotal: %s\n", v.ItemCount, v.TotalPrice.StringFixed(2))
}

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}
	cmd.AddCommand(newCartListCommand(rootOpts))
	cmd.AddCommand(newCartCountCommand(rootOpts))
	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartUpdateCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartClearCommand(rootOpts))
	return cmd
}

func newCartListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cart lines with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				v := viewCart(a.Cart())
				return out.Success(v, v.render)
			})
		},
	}
}

func newCartCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of items in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				n := a.Cart().TotalItemCount()
				return out.Success(map[string]int{"itemCount": n}, func(w io.Writer) {
					fmt.Fprintln(w, n)
				})
			})
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <product-id>...",
		Short: "Add products to the cart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				results, err := a.AddProducts(ctx, args, quantity)
				if err != nil {
					return err
				}
				return mutationOutput(out, a, results)
			})
		},
	}
	cmd.Flags().IntVarP(&quantity, "qty", "q", 1, "quantity of each product")
	return cmd
}

func newCartUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a line; 0 or less removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				_ = out.Error(ErrCodeInvalid, fmt.Sprintf("invalid quantity %q", args[1]))
				return WrapExitError(ExitCommandError, "invalid quantity", err)
			}
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				return mutationOutput(out, a, []cart.Result{a.Cart().UpdateQuantity(ctx, args[0], quantity)})
			})
		},
	}
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>...",
		Short: "Remove lines from the cart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				results := make([]cart.Result, 0, len(args))
				for _, id := range args {
					results = append(results, a.Cart().Remove(ctx, id))
				}
				return mutationOutput(out, a, results)
			})
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				return mutationOutput(out, a, []cart.Result{a.Cart().Clear(ctx)})
			})
		},
	}
}

// mutationOutput prints notices and the resulting cart. A rejected
// mutation fails the command; degraded ones do not.
func mutationOutput(out *OutputFormatter, a *app.App, results []cart.Result) error {
	v := viewCart(a.Cart())
	if err := out.Results(results, v, v.render); err != nil {
		return err
	}
	for _, r := range results {
		if r.Outcome == cart.Rejected {
			return WrapExitError(ExitCommandError, "cart request rejected", r.Err)
		}
	}
	return nil
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the saved cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				order, err := a.Checkout(ctx)
				if err != nil {
					return err
				}
				return out.Success(order, func(w io.Writer) {
					fmt.Fprintf(w, "Order %s placed. Total: %s\n", order.ID, order.Total.StringFixed(2))
				})
			})
		},
	}
}
