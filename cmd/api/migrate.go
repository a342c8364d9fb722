package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			database, err := openDatabase(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			dbCfg := cfg.Database()
			log.WithFields(log.Fields{
				"host":     dbCfg.Host,
				"database": dbCfg.Name,
			}).Info("✓ Schema is up to date")
			return nil
		},
	}
}
