package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/findologic/plugin-shopware-5-sub000/internal/app"
	"github.com/findologic/plugin-shopware-5-sub000/internal/config"
	"github.com/findologic/plugin-shopware-5-sub000/internal/export"
)

var (
	exportStart     int
	exportCount     int
	exportProductID int
	exportOut       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a page of the catalog export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, cfg *config.Config, log *slog.Logger) error {
			feed, err := a.Exporter().Export(cmd.Context(), export.Request{
				Shopkey:   cfg.Shopkey,
				Start:     exportStart,
				Count:     exportCount,
				ProductID: exportProductID,
			})
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if exportOut != "" && exportOut != "-" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create %s: %w", exportOut, err)
				}
				defer f.Close()
				out = f
			}
			if err := export.Write(out, feed); err != nil {
				return fmt.Errorf("write feed: %w", err)
			}

			log.Info("exported",
				slog.Int("start", feed.Start),
				slog.Int("items", feed.Count),
				slog.Int("total", feed.Total),
			)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportStart, "start", 0, "offset of the first article")
	exportCmd.Flags().IntVar(&exportCount, "count", 0, "page size (0 means the configured maximum)")
	exportCmd.Flags().IntVar(&exportProductID, "product-id", 0, "export a single article")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	rootCmd.AddCommand(exportCmd)
}
