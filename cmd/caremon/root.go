package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/backup"
	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/internal/sqlite"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the state of one CLI invocation: global flags, the resolved
// settings, and lazily opened storage.
type app struct {
	configDir string
	dataDir   string
	jsonOut   bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	settings *settings
	logger   *zap.Logger
	slot     fallback.Slot
	store    *sqlite.Store
	backups  *backup.Manager
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "caremon",
		Short:         "Local storage and backups for the elder-care monitoring program",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadSettings()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError{err}
	})

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $CAREMON_CONFIG_DIR or the platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.caremon-db)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		a.newVersionCmd(),
		a.newInitCmd(),
		a.newConfigCmd(),
		a.newPutCmd(),
		a.newGetCmd(),
		a.newListCmd(),
		a.newDeleteCmd(),
		a.newSummaryCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newBackupCmd(),
		a.newResetCmd(),
		a.newRestoreResetCmd(),
		a.newClearCmd(),
		a.newRestoreClearCmd(),
		a.newUsageCmd(),
		a.newCategoriesCmd(),
		a.newDocumentsCmd(),
	)
	return root
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the caremon version",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			a.printf("caremon %s\n", version)
		},
	}
}
