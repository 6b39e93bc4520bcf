package cmd

import (
	"errors"
	"fmt"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/repositories"
	"taskflow/internal/seed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace stored tasks and categories with a YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.Database.Driver == config.DriverMemory {
			return errors.New("seed needs a persistent DB_DRIVER (sqlite or postgres)")
		}

		f, err := seed.ReadFile(seedFile, time.Now())
		if err != nil {
			return err
		}

		pool := database.DefaultPoolConfig()
		pool.Driver = cfg.Database.Driver
		pool.DSN = cfg.GetDatabaseDSN()
		db, err := database.NewDatabasePool(pool)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repositories.AutoMigrate(db.DB); err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := f.Apply(ctx, db.DB); err != nil {
			return err
		}

		logger.Info("seed applied",
			zap.String("file", seedFile),
			zap.Int("tasks", len(f.Tasks)),
			zap.Int("categories", len(f.Categories)))
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d tasks and %d categories\n", len(f.Tasks), len(f.Categories))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "tasks.yaml", "YAML seed file")
	rootCmd.AddCommand(seedCmd)
}
