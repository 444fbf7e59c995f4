package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"callsense/internal/dataset"
	"callsense/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger and dataset state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			led, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer led.Close()

			summary, err := led.Summary(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := dataset.NewStore(cfg.DatasetPath()).Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed documents: %d\n", summary.TotalDocuments)
			fmt.Fprintf(out, "Dataset rows:        %d\n", len(rows))
			printLastRun(cmd, "full", summary.LastFull)
			printLastRun(cmd, "incremental", summary.LastIncremental)
			printLastRun(cmd, "single", summary.LastSingle)

			if len(summary.PerEntity) == 0 {
				return nil
			}

			entities := make([]string, 0, len(summary.PerEntity))
			for entity := range summary.PerEntity {
				entities = append(entities, entity)
			}
			sort.Strings(entities)

			tableRows := make([][]string, 0, len(entities))
			for _, entity := range entities {
				tableRows = append(tableRows, []string{
					entity,
					strconv.Itoa(summary.PerEntity[entity]),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Entity", "Documents"},
				tableRows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func printLastRun(cmd *cobra.Command, kind string, run *ledger.RunRecord) {
	out := cmd.OutOrStdout()
	if run == nil {
		fmt.Fprintf(out, "Last %s run:          never\n", kind)
		return
	}
	fmt.Fprintf(out, "Last %s run:          %s (%d documents, %d failures)\n",
		kind, run.FinishedAt.Local().Format("2006-01-02 15:04"), run.Documents, run.Failures)
}
