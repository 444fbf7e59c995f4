package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"callsense/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and reset processing state",
	}
	cmd.AddCommand(newLedgerSummaryCommand(ctx))
	cmd.AddCommand(newLedgerClearCommand(ctx))
	return cmd
}

func openLedger(ctx *commandContext) (*ledger.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg)
}

func newLedgerSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show processed document counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			led, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer led.Close()

			summary, err := led.Summary(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(summary.PerEntity))
			for entity, count := range summary.PerEntity {
				rows = append(rows, []string{entity, strconv.Itoa(count)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d processed documents\n", summary.TotalDocuments)
			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Entity", "Documents"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return nil
		},
	}
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [entity]",
		Short: "Forget processed documents so they are rescored",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("name an entity or pass --all")
			}

			led, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer led.Close()

			if all {
				n, err := led.ClearAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d documents\n", n)
				return nil
			}

			n, err := led.ClearEntity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d documents for %s\n", n, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear the whole ledger")
	return cmd
}
