package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ordersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show your order history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.client()
			if err != nil {
				return err
			}
			orders, err := c.Orders(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(orders) == 0 {
				fmt.Fprintln(out, "No orders yet.")
				return nil
			}
			for _, o := range orders {
				fmt.Fprintf(out, "#%d  %s  $%s  %s\n", o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), o.Total.StringFixed(2), o.Status)
				for _, item := range o.Items {
					fmt.Fprintf(out, "    %d × %s  $%s\n", item.Quantity, displayName(item), item.Price.StringFixed(2))
				}
			}
			return nil
		},
	}
}
