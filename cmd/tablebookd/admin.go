package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"table-booking-backend/config"
	"table-booking-backend/internal/auth"
	"table-booking-backend/internal/db"
	"table-booking-backend/internal/store"
)

func newAdminCmd(load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(load))
	return cmd
}

func newAdminCreateCmd(load func() (*config.Config, error)) *cobra.Command {
	var name, mobile, email, password string

	c := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account, or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			gormDB, err := db.Init(&cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}

			accounts := auth.NewService(store.NewGormStore(gormDB),
				auth.NewHasher(cfg.Auth.BcryptCost),
				auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
			user, err := accounts.SeedAdmin(context.Background(), auth.Registration{
				Name:     name,
				Mobile:   mobile,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "admin %q ready (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "admin email")
	c.Flags().StringVar(&password, "password", "", "admin password")
	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&mobile, "mobile", "", "contact number")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
