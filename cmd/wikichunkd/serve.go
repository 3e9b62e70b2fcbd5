package main

import (
	"github.com/spf13/cobra"

	"github.com/sahanbull/wikichunker/config"
	srv "github.com/sahanbull/wikichunker/internal/server"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the enrichment queue API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return serve
}
