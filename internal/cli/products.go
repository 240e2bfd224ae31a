package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Julie-03/Kapee/internal/app"
	"github.com/Julie-03/Kapee/pkg/domain"
	"github.com/spf13/cobra"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Browse the catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				products, err := a.Products(ctx)
				if err != nil {
					return err
				}
				sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
				return out.Success(products, func(w io.Writer) {
					if len(products) == 0 {
						fmt.Fprintln(w, "No products")
						return
					}
					for _, p := range products {
						fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2))
					}
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <product-id>",
		Short: "Show one product and how many are in the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				p, err := a.Product(ctx, args[0])
				if err != nil {
					return err
				}
				inCart := 0
				if l, ok := a.Cart().Line(p.ID); ok {
					inCart = l.Quantity
				}
				view := struct {
					domain.Product
					InCart int `json:"inCart"`
				}{p, inCart}
				return out.Success(view, func(w io.Writer) {
					fmt.Fprintf(w, "%s\n%s\nPrice: %s\n", p.Name, p.Description, p.Price.StringFixed(2))
					if p.Category != "" {
						fmt.Fprintf(w, "Category: %s\n", p.Category)
					}
					fmt.Fprintf(w, "In cart: %d\n", inCart)
				})
			})
		},
	})
	return cmd
}
