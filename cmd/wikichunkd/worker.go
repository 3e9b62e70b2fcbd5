package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sahanbull/wikichunker/config"
	"github.com/sahanbull/wikichunker/internal/enrich"
	"github.com/sahanbull/wikichunker/internal/wikifier"
	"github.com/sahanbull/wikichunker/internal/worker"
)

func workerCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "worker",
		Short: "Run the enrichment worker loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var cache *wikifier.Cache
			if cfg.Storage.Redis.Enabled {
				rdb := redis.NewClient(&redis.Options{
					Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
					Password: cfg.Storage.Redis.Password,
					DB:       cfg.Storage.Redis.DB,
				})
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("worker redis ping: %w", err)
				}
				defer func() { _ = rdb.Close() }()
				cache = wikifier.NewCache(rdb, cfg.Storage.Redis.CacheTTL)
			}

			logger := log.New(os.Stdout, fmt.Sprintf("[WORKER %s] ", uuid.NewString()[:8]), log.LstdFlags)

			extractor := wikifier.NewClient(cfg.Wikifier.BaseURL, cfg.Wikifier.UserKey, cfg.Wikifier.Timeout, logger, cache)
			chunkifier := enrich.NewChunkifier(extractor, logger)
			chunkifier.HTTPClient.Timeout = cfg.Worker.DownloadTimeout
			if cfg.Worker.TargetSectionSeconds > 0 {
				chunkifier.TargetSectionSeconds = cfg.Worker.TargetSectionSeconds
			}

			loop := worker.NewLoop(worker.NewClient(cfg.Worker.QueueURL, cfg.Worker.RequestTimeout), chunkifier, logger)
			loop.TransportBackoff = cfg.Worker.TransportBackoff
			loop.IdleSleep = cfg.Worker.IdleSleep
			loop.MalformedSleep = cfg.Worker.MalformedSleep

			if err := loop.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return cmd
}
