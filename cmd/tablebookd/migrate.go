package main

import (
	"github.com/spf13/cobra"

	"table-booking-backend/config"
	"table-booking-backend/internal/db"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			gormDB, err := db.Init(&cfg.Database)
			if err != nil {
				return err
			}
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
