package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/mariotejeda2001/Glazeepink/pkg/cart"
)

func cartCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the cart",
	}
	cmd.AddCommand(
		cartAddCmd(e),
		cartMutateCmd(e, "qty <id> <quantity>", "Set a line quantity (minimum 1)", 2, func(s *cart.Store, id int64, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Errorf("invalid quantity %q", args[1])
			}
			s.UpdateQuantity(id, qty)
			return nil
		}),
		cartMutateCmd(e, "dec <id>", "Decrease a line by one, removing it at zero", 1, func(s *cart.Store, id int64, _ []string) error {
			s.Decrement(id)
			return nil
		}),
		cartMutateCmd(e, "rm <id>", "Remove a line", 1, func(s *cart.Store, id int64, _ []string) error {
			s.Remove(id)
			return nil
		}),
		cartMutateCmd(e, "toggle <id>", "Include or exclude a line from checkout", 1, func(s *cart.Store, id int64, _ []string) error {
			s.ToggleSelect(id)
			return nil
		}),
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := e.cart()
				if err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), s.Snapshot())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := e.cart()
				if err != nil {
					return err
				}
				s.Clear()
				fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared.")
				return nil
			},
		},
	)
	return cmd
}

func cartAddCmd(e *env) *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a product to the cart",
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
			s, err := e.cart()
			if err != nil {
				return err
			}
			item := cart.Item{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price}
			if len(p.Images) > 0 {
				item.Image = p.Images[0]
			}
			s.Add(item, qty)
			return printCart(cmd.OutOrStdout(), s.Snapshot())
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	return cmd
}

func cartMutateCmd(e *env, use, short string, nargs int, fn func(s *cart.Store, id int64, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := e.cart()
			if err != nil {
				return err
			}
			if err := fn(s, id, args); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), s.Snapshot())
		},
	}
}

func printCart(w io.Writer, snap cart.Snapshot) error {
	if len(snap.Lines) == 0 {
		_, err := fmt.Fprintln(w, "Your cart is empty.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tQTY\tPRICE\tLINE")
	for _, l := range snap.Lines {
		mark := "[x]"
		if !l.Selected {
			mark = "[ ]"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t$%s\t$%s\n", mark, l.ProductID, l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Items: %d  Subtotal (selected): $%s\n", snap.Count, snap.Subtotal.StringFixed(2))
	return err
}
