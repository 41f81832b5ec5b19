package main

import (
	"fmt"
	"os"

	"avault-backend/internal/config"
	"avault-backend/internal/database"
	"avault-backend/internal/logging"
	"avault-backend/internal/server"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Run the inventory HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	log := logging.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	database.Init(cfg)

	app := server.NewApp(cfg)

	log.WithField("port", cfg.HTTPPort).Info("server listening")
	return app.Listen(":" + cfg.HTTPPort)
}
