package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/findologic/plugin-shopware-5-sub000/internal/app"
	"github.com/findologic/plugin-shopware-5-sub000/internal/config"
	"github.com/findologic/plugin-shopware-5-sub000/internal/event"
	pkgkafka "github.com/findologic/plugin-shopware-5-sub000/pkg/kafka"
)

var reindexReset bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the native fallback index from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, _ *config.Config, log *slog.Logger) error {
			reindex := a.IndexService().Reindex
			if reindexReset {
				reindex = a.IndexService().Rebuild
			}
			n, err := reindex(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("reindexed", slog.Int("documents", n))
			return nil
		})
	},
}

var publishAction string

var publishCmd = &cobra.Command{
	Use:   "publish ARTICLE_ID",
	Short: "Publish a product event so running bridges refresh an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("article id must be a positive integer, got %q", args[0])
		}

		var topic string
		switch publishAction {
		case "created":
			topic = event.TopicProductCreated
		case "updated":
			topic = event.TopicProductUpdated
		case "deleted":
			topic = event.TopicProductDeleted
		default:
			return fmt.Errorf("action must be created, updated or deleted")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()

		producer := pkgkafka.NewProducer(cfg.KafkaBrokers, log)
		defer producer.Close()

		evt, err := pkgkafka.NewEvent(topic, args[0], "product", "searchctl", event.ProductEventData{ID: id})
		if err != nil {
			return err
		}
		if err := producer.Publish(cmd.Context(), topic, evt); err != nil {
			return err
		}
		log.Info("published", slog.String("topic", topic), slog.Int("article_id", id))
		return nil
	},
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexReset, "reset", false, "drop the index before rebuilding it")
	publishCmd.Flags().StringVar(&publishAction, "action", "updated", "event action (created, updated, deleted)")
	rootCmd.AddCommand(reindexCmd, publishCmd)
}
