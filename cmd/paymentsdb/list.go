// ABOUTME: list subcommands printing incoming and outgoing payments as tables
// ABOUTME: Shared time range flags accept RFC3339 timestamps or plain dates

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/lnledger/internal/payments"
	"github.com/2389/lnledger/internal/store"
)

// rangeFlags holds --from/--to as typed on the command line.
type rangeFlags struct {
	from string
	to   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.from, "from", "", "start of range, inclusive (2006-01-02 or RFC3339)")
	cmd.Flags().StringVar(&r.to, "to", "", "end of range, exclusive (2006-01-02 or RFC3339)")
}

func (r *rangeFlags) parse() (from, to time.Time, err error) {
	if from, err = parseTime(r.from); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	if to, err = parseTime(r.to); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	if !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", r.to, r.from)
	}
	return from, to, nil
}

// parseTime accepts an empty string (zero time), a date or an RFC3339 timestamp.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments",
	}
	cmd.AddCommand(newListIncomingCmd(a))
	cmd.AddCommand(newListOutgoingCmd(a))
	return cmd
}

type listFlags struct {
	rangeFlags
	limit      int
	offset     int
	externalID string
	completed  bool
}

func (f *listFlags) register(cmd *cobra.Command, completedHelp string) {
	f.rangeFlags.register(cmd)
	cmd.Flags().IntVar(&f.limit, "limit", 20, "maximum rows")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "rows to skip")
	cmd.Flags().StringVar(&f.externalID, "external-id", "", "only payments with this external id")
	cmd.Flags().BoolVar(&f.completed, "completed", false, completedHelp)
}

func (f *listFlags) params() (store.ListParams, error) {
	from, to, err := f.parse()
	if err != nil {
		return store.ListParams{}, err
	}
	return store.ListParams{
		From:       from,
		To:         to,
		Limit:      f.limit,
		Offset:     f.offset,
		ExternalID: f.externalID,
	}, nil
}

func newListIncomingCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "incoming",
		Short: "List incoming payments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := f.params()
			if err != nil {
				return err
			}
			params.OnlyReceived = f.completed

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.ListIncomingPayments(cmd.Context(), params)
			if err != nil {
				return err
			}
			printIncoming(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	f.register(cmd, "only received payments")
	return cmd
}

func newListOutgoingCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "outgoing",
		Short: "List outgoing payments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := f.params()
			if err != nil {
				return err
			}
			params.OnlySucceeded = f.completed

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.ListOutgoingPayments(cmd.Context(), params)
			if err != nil {
				return err
			}
			printOutgoing(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	f.register(cmd, "only successful payments")
	return cmd
}

func printIncoming(out io.Writer, rows []store.IncomingWithMetadata) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Incoming Payments")
	cyan.Fprintln(out, "  -----------------")

	if len(rows) == 0 {
		fmt.Fprintln(out, "  (no payments)")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  HASH\tORIGIN\tAMOUNT_MSAT\tFEES_MSAT\tPARTS\tCREATED\tRECEIVED\tEXTERNAL_ID")
	fmt.Fprintln(w, "  ----\t------\t-----------\t---------\t-----\t-------\t--------\t-----------")
	for _, r := range rows {
		p := r.Payment
		fmt.Fprintf(w, "  %s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			truncate(p.PaymentHash.String(), 16),
			originName(p.Origin),
			p.Amount(),
			p.Fees(),
			len(p.Parts),
			formatTime(&p.CreatedAt),
			formatTime(p.ReceivedAt),
			r.ExternalID,
		)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func printOutgoing(out io.Writer, rows []store.OutgoingWithMetadata) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Outgoing Payments")
	cyan.Fprintln(out, "  -----------------")

	if len(rows) == 0 {
		fmt.Fprintln(out, "  (no payments)")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tKIND\tAMOUNT\tSTATUS\tCREATED\tCOMPLETED\tEXTERNAL_ID")
	fmt.Fprintln(w, "  --\t----\t------\t------\t-------\t---------\t-----------")
	for _, r := range rows {
		p := r.Payment
		amount, status := describeOutgoing(p)
		created := p.CreatedTime()
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(p.Identity().ID.String(), 12),
			p.Identity().Kind,
			amount,
			status,
			formatTime(&created),
			formatTime(p.CompletedTime()),
			r.ExternalID,
		)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func originName(o payments.IncomingOrigin) string {
	switch o.(type) {
	case *payments.InvoiceOrigin:
		return "invoice"
	case *payments.OfferOrigin:
		return "offer"
	case *payments.OnChainOrigin:
		return "on-chain"
	}
	return "unknown"
}

// describeOutgoing renders the amount and status columns of an outgoing row.
func describeOutgoing(p payments.OutgoingPayment) (amount, status string) {
	switch p := p.(type) {
	case *payments.LightningOutgoingPayment:
		amount = fmt.Sprintf("%d msat", p.RecipientAmount)
		switch s := p.Status.(type) {
		case *payments.SucceededStatus:
			status = color.GreenString("succeeded")
		case *payments.FailedStatus:
			status = color.RedString("failed (%s)", s.Reason)
		default:
			status = color.YellowString("pending")
		}
		return amount, status
	case payments.OnChainPayment:
		amount = fmt.Sprintf("%d sat fee", int64(p.MiningFees()))
		switch confirmed, locked := p.Confirmation(); {
		case locked != nil:
			status = color.GreenString("locked")
		case confirmed != nil:
			status = color.CyanString("confirmed")
		default:
			status = color.YellowString("unconfirmed")
		}
		return amount, status
	}
	return "", "unknown"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("Jan 02 15:04")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
