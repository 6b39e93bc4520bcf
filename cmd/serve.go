package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"taskflow/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the HTTP API and, when Redis is configured, the reminder worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := server.NewApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Run(ctx); err != nil {
			return err
		}
		logger.Info("server stopped gracefully", zap.String("addr", cfg.GetServerAddr()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
