package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/pkg/api"
	"github.com/mariotejeda2001/Glazeepink/pkg/checkout"
)

// maxRecordRetries bounds interactive retries of a failed order save.
const maxRecordRetries = 3

func checkoutCmd(e *env) *cobra.Command {
	var paymentMethod string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for the selected cart lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			client, err := e.client()
			if err != nil {
				return err
			}
			if client.Token() == "" {
				return errors.New("log in before checking out: storefront login --email ... --password ...")
			}
			store, err := e.cart()
			if err != nil {
				return err
			}
			confirmer, err := e.newConfirmer(e)
			if err != nil {
				return err
			}

			flow := checkout.NewFlow(store, client, confirmer,
				checkout.WithLogger(e.lg),
				checkout.WithObserver(func(from, to checkout.State) {
					e.lg.Debug("Checkout state", zap.String("from", string(from)), zap.String("to", string(to)))
				}),
			)
			if err := flow.Begin(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "Paying $%s for %d selected line(s)...\n", flow.Subtotal().StringFixed(2), len(store.Selected()))

			retries := 0
			o, err := flow.Submit(ctx, paymentMethod)
			for err != nil {
				var (
					actionErr   *checkout.ActionRequiredError
					notSavedErr *checkout.OrderNotSavedError
					payErr      *checkout.PaymentError
				)
				switch {
				case errors.As(err, &actionErr), errors.Is(err, checkout.ErrStillPending):
					if actionErr != nil && actionErr.RedirectURL != "" {
						fmt.Fprintf(out, "Your bank needs you to confirm the payment:\n  %s\n", actionErr.RedirectURL)
					} else {
						fmt.Fprintln(out, "The payment is still pending.")
					}
					if !prompt(out, in, "Press Enter once done, or type q to stop") {
						fmt.Fprintf(out, "Stopped. Payment reference: %s\n", flow.PaymentIntentID())
						return flow.Abandon()
					}
					o, err = flow.Resume(ctx)
				case errors.As(err, &notSavedErr):
					fmt.Fprintln(out, notSavedErr.Error())
					if retries >= maxRecordRetries || !prompt(out, in, "Retry saving the order? [Y/n]") {
						return err
					}
					retries++
					o, err = flow.RetryRecord(ctx)
				case errors.As(err, &payErr):
					return errors.Wrap(payErr, "payment failed")
				default:
					return err
				}
			}

			printOrderConfirmation(out, o)
			return nil
		},
	}
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "pm_card_visa", "payment method id to charge")
	cmd.Flags().StringVar(&e.returnURL, "return-url", "", "where the bank redirects after an authentication challenge")
	return cmd
}

// prompt returns false when the answer starts with q or n, or input ends.
func prompt(out io.Writer, in *bufio.Reader, question string) bool {
	fmt.Fprintf(out, "%s ", question)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return !strings.HasPrefix(answer, "q") && !strings.HasPrefix(answer, "n")
}

func printOrderConfirmation(out io.Writer, o *api.Order) {
	fmt.Fprintf(out, "Order #%d confirmed. Total $%s (%s)\n", o.ID, o.Total.StringFixed(2), o.Status)
	for _, item := range o.Items {
		fmt.Fprintf(out, "  %d × %s  $%s\n", item.Quantity, displayName(item), item.Price.StringFixed(2))
	}
}

func displayName(item api.OrderItem) string {
	if item.Product.Name != "" {
		return item.Product.Name
	}
	return fmt.Sprintf("product %d", item.ProductID)
}
