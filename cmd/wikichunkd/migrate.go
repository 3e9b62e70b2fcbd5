package main

import (
	"github.com/spf13/cobra"

	"github.com/sahanbull/wikichunker/config"
	srv "github.com/sahanbull/wikichunker/internal/server"
)

func migrateCMD() *cobra.Command {
	var (
		cfgPath   string
		dir       string
		direction string
		steps     int
	)
	var cmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return srv.Migrate(dir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	cmd.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
