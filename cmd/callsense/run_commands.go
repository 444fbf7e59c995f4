package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		force bool
		max   int
		local bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score new transcripts for every tracked company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			app, err := buildApp(cfg, local)
			if err != nil {
				return err
			}
			defer app.Close()

			entities := app.catalog.Identifiers()
			if max > 0 && max < len(entities) {
				entities = entities[:max]
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			snap, err := app.engine.Run(runCtx, entities, force)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Entities", "Documents", "Failures"},
				[][]string{{
					strconv.Itoa(snap.Total),
					strconv.Itoa(snap.Documents),
					strconv.Itoa(snap.Failures),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rescore documents already in the ledger")
	cmd.Flags().IntVar(&max, "max", 0, "Limit the number of entities processed")
	cmd.Flags().BoolVar(&local, "local", false, "Read transcripts from the documents directory instead of the remote source")
	return cmd
}

func newSingleCommand(ctx *commandContext) *cobra.Command {
	var (
		force bool
		local bool
	)

	cmd := &cobra.Command{
		Use:   "single <entity>",
		Short: "Score one company's transcripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			app, err := buildApp(cfg, local)
			if err != nil {
				return err
			}
			defer app.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rows, err := app.engine.Single(runCtx, args[0], force)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing new to score")
				return nil
			}

			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				tableRows = append(tableRows, []string{
					row.Entity,
					row.PeriodKey(),
					fmt.Sprintf("%.3f", row.Composite),
					categoryLabel(row.Category),
					fmt.Sprintf("%.3f", row.Risk),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Entity", "Period", "Composite", "Category", "Risk"},
				tableRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rescore documents already in the ledger")
	cmd.Flags().BoolVar(&local, "local", false, "Read transcripts from the documents directory instead of the remote source")
	return cmd
}
