package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"table-booking-backend/config"
)

var logger = log.New(os.Stdout, "tablebook ", log.LstdFlags)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tablebookd",
		Short: "Restaurant table reservation service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// load .env if present
			if err := godotenv.Load(); err != nil {
				logger.Println("no .env file found; using system environment")
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CONFIG_PATH or ./config/config.yaml)")

	load := func() (*config.Config, error) {
		path := configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "./config/config.yaml" // Default path for local development
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
		logger.Printf("configuration loaded successfully from %s", path)
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newMigrateCmd(load))
	root.AddCommand(newAdminCmd(load))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
