package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and initialize the local database",
		Long: `Init writes a default config.yaml when none exists, then opens the local
database, creating or upgrading its schema. Running it again is harmless.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if err := store.Initialize(ctx); err != nil {
				return err
			}
			s := a.settings
			if a.jsonOut {
				return a.printJSON(map[string]string{
					"config":   filepath.Join(s.ConfigDir, configFileExt),
					"database": store.Path(),
					"exports":  s.Storage.ExportDir,
					"state":    store.State().String(),
				})
			}
			a.printf("caremon initialized\n")
			a.printf("  config:   %s\n", filepath.Join(s.ConfigDir, configFileExt))
			a.printf("  database: %s\n", store.Path())
			a.printf("  exports:  %s\n", s.Storage.ExportDir)
			return nil
		},
	}
}
