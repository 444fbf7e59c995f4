package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"callsense/internal/catalog"
	"callsense/internal/locator"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage tracked companies",
	}
	cmd.AddCommand(newCatalogListCommand(ctx))
	cmd.AddCommand(newCatalogAddCommand(ctx))
	cmd.AddCommand(newCatalogRemoveCommand(ctx))
	return cmd
}

func openCatalog(ctx *commandContext, withValidator bool) (*catalog.Catalog, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	static, err := catalog.LoadStatic(cfg.Paths.CatalogCSV)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var validator catalog.Validator
	if withValidator {
		validator = locator.New(cfg.Source)
	}
	return catalog.New(static, catalog.NewCustomStore(cfg.CustomCatalogPath()), validator)
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := openCatalog(ctx, false)
			if err != nil {
				return err
			}

			entities := cat.All()
			rows := make([][]string, 0, len(entities))
			for _, e := range entities {
				origin := "static"
				if e.Custom {
					origin = "custom"
				}
				rows = append(rows, []string{e.NSECode, e.Name, e.Sector, origin})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Name", "Sector", "Origin"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			stats := cat.Statistics()
			fmt.Fprintf(cmd.OutOrStdout(), "%d companies (%d static, %d custom) across %d sectors\n",
				stats.Total, stats.Static, stats.Custom, stats.Sectors)
			return nil
		},
	}
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var (
		name      string
		nseCode   string
		bseCode   string
		sector    string
		marketCap float64
		validate  bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := openCatalog(ctx, validate)
			if err != nil {
				return err
			}

			entity, err := cat.Add(cmd.Context(), catalog.AddParams{
				Name:      name,
				NSECode:   nseCode,
				BSECode:   bseCode,
				Sector:    sector,
				MarketCap: marketCap,
			}, validate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", entity.Name, entity.NSECode)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Company display name")
	cmd.Flags().StringVar(&nseCode, "nse", "", "NSE exchange code")
	cmd.Flags().StringVar(&bseCode, "bse", "", "BSE exchange code")
	cmd.Flags().StringVar(&sector, "sector", "", "Sector label")
	cmd.Flags().Float64Var(&marketCap, "market-cap", 0, "Market capitalization in crores")
	cmd.Flags().BoolVar(&validate, "validate", false, "Verify the company exists at the document source")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCatalogRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <code>",
		Short: "Remove a custom company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := openCatalog(ctx, false)
			if err != nil {
				return err
			}
			if err := cat.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removed "+args[0])
			return nil
		},
	}
}
