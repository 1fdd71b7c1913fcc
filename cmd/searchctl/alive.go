package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/findologic/plugin-shopware-5-sub000/internal/client"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/httpclient"
)

var aliveCmd = &cobra.Command{
	Use:   "alive",
	Short: "Check whether the search service answers for the configured shopkey",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()

		httpCfg := httpclient.DefaultConfig()
		httpCfg.MaxRetries = 0
		c := client.New(httpclient.New(httpCfg), cfg.SearchServiceURL, cfg.Shopkey, cfg.AliveTimeout, log)

		if err := c.Ping(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "not alive: %s\n", err)
			return errors.New("search service is not alive")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "alive")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aliveCmd)
}
