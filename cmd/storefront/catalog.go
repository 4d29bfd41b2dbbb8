package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func productsCmd(e *env) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.client()
			if err != nil {
				return err
			}
			products, err := c.Products(cmd.Context(), category)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING")
			for _, p := range products {
				fmt.Fprintf(tw, "%d\t%s\t%s\t$%s\t%.1f (%d)\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Rating, p.Reviews)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only products in this category")
	return cmd
}

func productCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := e.client()
			if err != nil {
				return err
			}
			p, err := c.Product(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  $%s\n", p.Name, p.Price.StringFixed(2))
			fmt.Fprintf(out, "%s · %.1f★ (%d reviews)\n\n", p.Category, p.Rating, p.Reviews)
			fmt.Fprintln(out, p.Description)
			if p.LongDescription != nil {
				fmt.Fprintf(out, "\n%s\n", *p.LongDescription)
			}
			if len(p.Flavors) > 0 {
				fmt.Fprintf(out, "\nFlavors: %s\n", strings.Join(p.Flavors, ", "))
			}
			if p.Servings != nil {
				fmt.Fprintf(out, "Servings: %d\n", *p.Servings)
			}
			if p.Ingredients != nil {
				fmt.Fprintf(out, "Ingredients: %s\n", *p.Ingredients)
			}
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid product id %q", s)
	}
	return id, nil
}
