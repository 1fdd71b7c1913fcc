package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/findologic/plugin-shopware-5-sub000/internal/app"
	"github.com/findologic/plugin-shopware-5-sub000/internal/config"
)

var (
	seedArticles int
	seedValue    uint64
	seedYes      bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the catalog with a generated demo shop",
	Long: "Truncates the catalog tables, writes a generated category tree with articles,\n" +
		"variants and prices, then rebuilds the native index.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !seedYes {
			return errors.New("seed deletes the current catalog; pass --yes to continue")
		}
		if seedArticles < 1 {
			return errors.New("--articles must be positive")
		}
		return withApp(func(a *app.App, cfg *config.Config, log *slog.Logger) error {
			n, err := a.SeedDemoCatalog(cmd.Context(), seedArticles, seedValue)
			if err != nil {
				return err
			}
			log.Info("catalog seeded",
				slog.Int("articles", seedArticles),
				slog.Int("indexed", n),
				slog.Int("root_category", cfg.ShopRootCategoryID),
			)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedArticles, "articles", 200, "number of articles to generate")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 1, "random seed; equal seeds generate equal catalogs")
	seedCmd.Flags().BoolVar(&seedYes, "yes", false, "confirm that the catalog tables are replaced")
	rootCmd.AddCommand(seedCmd)
}
