package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (a *app) newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage the automatic backup kept in the fallback slot",
	}
	cmd.AddCommand(a.newBackupNowCmd(), a.newBackupWatchCmd(), a.newBackupRestoreAutoCmd())
	return cmd
}

func (a *app) newBackupNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Store a snapshot in the auto-backup slot",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			backups, err := a.openBackups(ctx)
			if err != nil {
				return err
			}
			if err := backups.BackupNow(ctx, store); err != nil {
				return err
			}
			return a.message("auto-backup stored")
		},
	}
}

func (a *app) newBackupWatchCmd() *cobra.Command {
	var interval, duration time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Snapshot the database periodically until interrupted",
		Long: `Watch stores a snapshot in the auto-backup slot immediately and then every
interval (default: auto_backup.interval_minutes from config.yaml) until
interrupted or, with --for, until the duration elapses.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("interval") {
				interval = a.settings.Storage.GetAutoBackup()
			}
			if interval <= 0 {
				return userErrorf("--interval must be positive")
			}
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if err := store.Initialize(ctx); err != nil {
				return err
			}
			backups, err := a.openBackups(ctx)
			if err != nil {
				return err
			}
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return backups.BackupNow(context.WithoutCancel(gctx), store)
			})
			g.Go(func() error {
				stop, err := backups.EnableAutoBackup(gctx, store, interval)
				if err != nil {
					return err
				}
				<-gctx.Done()
				stop()
				return nil
			})
			a.logger.Info("watching", zap.Duration("interval", interval), zap.String("database", store.Path()))
			if err := g.Wait(); err != nil {
				return err
			}
			return a.message("auto-backup stopped")
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between snapshots")
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: run until interrupted)")
	return cmd
}

func (a *app) newBackupRestoreAutoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore-auto",
		Short: "Import the snapshot held in the auto-backup slot",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backups, err := a.openBackups(ctx)
			if err != nil {
				return err
			}
			latest := backups.LatestAutoBackup(ctx)
			if latest == nil {
				return userErrorf("no auto-backup available")
			}
			a.logger.Info("restoring auto-backup", zap.Time("backed_up_at", latest.BackedUpAt))
			return a.importSnapshot(ctx, &latest.Snapshot)
		},
	}
}

func (a *app) newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete and recreate the local database",
		Long: `Reset saves whatever can be read from the database into the reset-backup
slot, deletes the database files, and recreates an empty database. Use
restore-reset to bring the saved records back.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return userErrorf("reset deletes the database; pass --yes to confirm")
			}
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if err := store.ResetDatabase(ctx); err != nil {
				return err
			}
			if err := store.Initialize(ctx); err != nil {
				return err
			}
			return a.message("database reset; previous contents saved for restore-reset")
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func (a *app) newRestoreResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore-reset",
		Short: "Import the snapshot saved by the last reset",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			restored, err := store.RestoreFromResetBackup(cmd.Context())
			if err != nil {
				return err
			}
			if !restored {
				return userErrorf("no reset backup available")
			}
			return a.message("reset backup restored")
		},
	}
}

func (a *app) newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record, keeping document categories",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return userErrorf("clear deletes every record; pass --yes to confirm")
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.ClearAll(cmd.Context()); err != nil {
				return err
			}
			return a.message("all records deleted; previous contents saved for restore-clear")
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func (a *app) newRestoreClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore-clear",
		Short: "Import the snapshot saved by the last clear",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			restored, err := store.RestoreFromClearBackup(cmd.Context())
			if err != nil {
				return err
			}
			if !restored {
				return userErrorf("no clear backup available")
			}
			return a.message("clear backup restored")
		},
	}
}

func (a *app) newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Report local storage usage",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := a.openBackups(cmd.Context())
			if err != nil {
				return err
			}
			u := backups.GetStorageUsage(cmd.Context())
			if a.jsonOut {
				return a.printJSON(u)
			}
			a.printf("used:  %s\nquota: %s\n%.1f%% used\n",
				humanize.Bytes(u.Used), humanize.Bytes(u.Quota), u.Percentage)
			return nil
		},
	}
}
