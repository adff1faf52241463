// ABOUTME: export csv and summary subcommands over successful payments
// ABOUTME: Both stream events in completion order with the configured batch size

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/lnledger/internal/export"
)

type exportFlags struct {
	rangeFlags
	batchSize int
}

func (f *exportFlags) register(cmd *cobra.Command) {
	f.rangeFlags.register(cmd)
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "payments fetched per page (default export.batch_size)")
}

func (f *exportFlags) batch(a *app) int {
	if f.batchSize > 0 {
		return f.batchSize
	}
	return a.cfg.Export.BatchSize
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export successful payments",
	}
	cmd.AddCommand(newExportCSVCmd(a))
	return cmd
}

func newExportCSVCmd(a *app) *cobra.Command {
	var (
		f      exportFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write one CSV row per balance movement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := f.parse()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				out = file
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := writeCSV(cmd.Context(), s, out, from, to, f.batch(a))
			if err != nil {
				return err
			}
			a.logger.Info("csv export written", "rows", rows, "output", output)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func writeCSV(ctx context.Context, src export.Source, out io.Writer, from, to time.Time, batchSize int) (int, error) {
	w := export.NewCSVWriter(out)
	if err := export.ForEachEvent(ctx, src, from, to, batchSize, w.Write); err != nil {
		return 0, fmt.Errorf("exporting csv: %w", err)
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("flushing csv: %w", err)
	}
	return w.Rows(), nil
}

func newSummaryCmd(a *app) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate successful payments by type and show the net balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := f.parse()
			if err != nil {
				return err
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var totals export.Totals
			err = export.ForEachEvent(cmd.Context(), s, from, to, f.batch(a), func(e export.Event) error {
				totals.Add(e)
				return nil
			})
			if err != nil {
				return fmt.Errorf("summarising payments: %w", err)
			}

			printSummary(cmd.OutOrStdout(), totals)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func printSummary(out io.Writer, t export.Totals) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Payments Summary")
	cyan.Fprintln(out, "  ----------------")

	if t.Events == 0 {
		fmt.Fprintln(out, "  (no successful payments)")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TYPE\tCOUNT\tAMOUNT_BTC\tFEE_CREDIT_BTC\tMINING_FEE_SAT\tSERVICE_FEE_MSAT")
	fmt.Fprintln(w, "  ----\t-----\t----------\t--------------\t--------------\t----------------")
	for _, typ := range export.EventTypes {
		tt, ok := t.ByType[typ]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\t%s\t%d\t%d\n",
			typ, tt.Count, export.BTC(tt.Amount), export.BTC(tt.FeeCredit), tt.MiningFee, tt.ServiceFee)
	}
	w.Flush()

	fmt.Fprintln(out)
	green := color.New(color.FgGreen)
	green.Fprint(out, "  ▶ ")
	fmt.Fprintf(out, "Events:      %d\n", t.Events)
	green.Fprint(out, "  ▶ ")
	fmt.Fprintf(out, "Balance:     %s BTC\n", t.BalanceBTC())
	green.Fprint(out, "  ▶ ")
	fmt.Fprintf(out, "Fee credit:  %s BTC\n", t.FeeCreditBTC())
	green.Fprint(out, "  ▶ ")
	fmt.Fprintf(out, "Mining fees: %s BTC\n", t.MiningFeeBTC())
	fmt.Fprintln(out)
}
