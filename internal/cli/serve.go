package cli

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hashing-heroes/heroes/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the earnings API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d, err := daemon.New(ctx, cfg, Version)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"version": Version,
			"storage": cfg.Storage.Driver,
			"metrics": cfg.Metrics.Enabled,
		}).Info("starting heroes")
		return d.Run(ctx)
	},
}
