package main

import (
	"strings"
	"sync"

	"avault-backend/internal/config"
	"avault-backend/internal/database"
	"avault-backend/internal/logging"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type commandContext struct {
	configFlag *string

	once   sync.Once
	config *config.Config
	db     *gorm.DB
	err    error
}

func (c *commandContext) open() (*gorm.DB, error) {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		logging.Configure(cfg.LogLevel, "text")

		db, err := database.Open(cfg)
		if err != nil {
			c.err = err
			return
		}
		if err := database.Migrate(db); err != nil {
			c.err = err
			return
		}
		c.config, c.db = cfg, db
	})
	return c.db, c.err
}

func (c *commandContext) close() {
	if c.db == nil {
		return
	}
	if sqlDB, err := c.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "avault",
		Short:         "AV equipment inventory from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.open()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newTermsCommand(ctx))
	rootCmd.AddCommand(newReconcileCommand(ctx))
	rootCmd.AddCommand(newTrendCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))

	return rootCmd
}
