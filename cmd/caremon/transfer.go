package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/backup"
	"github.com/mesh-intelligence/caremon/internal/excel"
	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

func (a *app) newExportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a full JSON backup of the database",
		Long: `Export writes every table to <name>_<YYYY-MM-DD>.json in the export
directory and prints the file path.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := a.exportAll(ctx)
			if err != nil {
				return err
			}
			backups, err := a.openBackups(ctx)
			if err != nil {
				return err
			}
			path, err := backups.ExportToFile(snap, name)
			if err != nil {
				return err
			}
			return a.printPath(path, snap.Counts())
		},
	}
	cmd.Flags().StringVar(&name, "name", backup.DefaultBackupName, "file name prefix")
	cmd.AddCommand(a.newExportCSVCmd(), a.newExportXLSXCmd(), a.newExportTextCmd())
	return cmd
}

func (a *app) exportAll(ctx context.Context) (*types.Snapshot, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.ExportAll(ctx)
}

func (a *app) printPath(path string, counts map[types.Kind]int) error {
	if a.jsonOut {
		return a.printJSON(map[string]any{"path": path, "counts": counts})
	}
	if path == "" {
		a.printf("nothing to export\n")
		return nil
	}
	a.printf("%s\n", path)
	return nil
}

func (a *app) newExportCSVCmd() *cobra.Command {
	var name string
	var headers map[string]string
	cmd := &cobra.Command{
		Use:   "csv <kind>",
		Short: "Write one table as a CSV file",
		Long: `CSV writes every record of kind to <name>_<YYYY-MM-DD>.csv with a UTF-8
byte-order mark. Columns follow the record's JSON fields; --header renames them.
Nested values are written as JSON. An empty table writes no file.`,
		Example: `  caremon export csv organizations --header name=기관명 --header region=지역`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			recs, err := store.GetAll(ctx, kind)
			if err != nil {
				return err
			}
			backups, err := a.openBackups(ctx)
			if err != nil {
				return err
			}
			if name == "" {
				name = string(kind)
			}
			path, err := backup.ExportToCSV(backups, recs, name, headers)
			if err != nil {
				return err
			}
			return a.printPath(path, map[types.Kind]int{kind: len(recs)})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "file name prefix (default: the kind)")
	cmd.Flags().StringToStringVar(&headers, "header", nil, "column display name as field=label (repeatable)")
	return cmd
}

func (a *app) newExportXLSXCmd() *cobra.Command {
	var out string
	var template bool
	cmd := &cobra.Command{
		Use:   "xlsx [kind]",
		Short: "Write a spreadsheet report",
		Long: `Xlsx writes officialSurveys, elderlySurveys, or inventoryDistributions as an
xlsx workbook. With --template it writes an empty official survey import
template instead.`,
		Args: rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var buf bytes.Buffer
			var sheet string
			switch {
			case template:
				sheet = excel.SheetOfficialSurveys + "_템플릿"
				if err := excel.WriteOfficialSurveyTemplate(&buf); err != nil {
					return err
				}
			case len(args) == 1:
				kind, err := parseKind(args[0])
				if err != nil {
					return err
				}
				snap, err := a.exportAll(ctx)
				if err != nil {
					return err
				}
				switch kind {
				case types.KindOfficialSurveys:
					sheet = excel.SheetOfficialSurveys
					err = excel.WriteOfficialSurveys(&buf, *snap.OfficialSurveys)
				case types.KindElderlySurveys:
					sheet = excel.SheetElderlySurveys
					err = excel.WriteElderlySurveys(&buf, *snap.ElderlySurveys)
				case types.KindInventoryDistributions:
					sheet = excel.SheetDistributions
					err = excel.WriteInventoryDistributions(&buf, *snap.InventoryDistributions)
				default:
					return userErrorf("no spreadsheet report for %s", kind)
				}
				if err != nil {
					return err
				}
			default:
				return userErrorf("a kind or --template is required")
			}

			path := out
			if path == "" {
				path = filepath.Join(a.settings.Storage.ExportDir,
					fmt.Sprintf("%s_%s.xlsx", sheet, time.Now().Format(time.DateOnly)))
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := fallback.WriteFileAtomic(path, buf.Bytes()); err != nil {
				return err
			}
			return a.printPath(path, nil)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: export directory)")
	cmd.Flags().BoolVar(&template, "template", false, "write the official survey import template")
	return cmd
}

func (a *app) newExportTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text",
		Short: "Print the database as compressed base64 text",
		Long:  `Text prints a gzip-compressed, base64-encoded snapshot that "import text" accepts.`,
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.exportAll(cmd.Context())
			if err != nil {
				return err
			}
			text, err := backup.Compress(snap)
			if err != nil {
				return err
			}
			a.printf("%s\n", text)
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore records from a JSON backup",
		Long: `Import reads a backup written by export and upserts every record it holds.
Tables absent from the file are left alone; records not in the file are kept.
If any record is invalid nothing is written.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backups, err := a.openBackups(ctx)
			if err != nil {
				return err
			}
			snap, err := backups.ImportFromFile(ctx, backup.FilePicker(args[0]))
			if err != nil {
				return err
			}
			if snap == nil {
				return a.message("import cancelled")
			}
			return a.importSnapshot(ctx, snap)
		},
	}
	cmd.AddCommand(a.newImportXLSXCmd(), a.newImportTextCmd())
	return cmd
}

func (a *app) importSnapshot(ctx context.Context, snap *types.Snapshot) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	counts, err := store.ImportAll(ctx, snap)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(map[string]any{"imported": counts})
	}
	for _, kind := range types.AllKinds {
		if n, ok := counts[kind]; ok {
			a.printf("%-24s %d\n", kind, n)
		}
	}
	return nil
}

func (a *app) newImportXLSXCmd() *cobra.Command {
	var skipInvalid bool
	cmd := &cobra.Command{
		Use:   "xlsx <file>",
		Short: "Bulk-load official surveys from a spreadsheet",
		Long: `Xlsx reads official survey responses from the first sheet of a workbook.
Headers may be field names, the short Korean labels, or the full question
text. Rows with an empty required answer are reported; by default they abort
the import, with --skip-invalid the remaining rows are loaded.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return userErrorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			surveys, rowErrs, err := excel.ReadOfficialSurveys(f)
			if err != nil {
				return userError{err}
			}
			for _, re := range rowErrs {
				fmt.Fprintln(a.stderr, re.Error())
			}
			if len(rowErrs) > 0 && !skipInvalid {
				return userErrorf("%d rows have empty required answers; nothing imported", len(rowErrs))
			}
			if len(surveys) == 0 {
				return a.message("no surveys found")
			}

			recs := make([]types.Record, len(surveys))
			for i := range surveys {
				recs[i] = surveys[i]
			}
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			saved, err := store.PutMany(ctx, types.KindOfficialSurveys, recs)
			if err != nil {
				return err
			}
			a.logger.Info("official surveys imported",
				zap.String("file", args[0]), zap.Int("rows", len(saved)), zap.Int("skipped", len(rowErrs)))
			return a.message("imported %d official surveys", len(saved))
		},
	}
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "load valid rows even when some rows are incomplete")
	return cmd
}

func (a *app) newImportTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text [file|-]",
		Short: "Restore records from compressed text written by export text",
		Args:  rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			data, err := a.readInput(name)
			if err != nil {
				return err
			}
			snap := backup.Decompress(strings.TrimSpace(string(data)))
			if snap == nil {
				return fmt.Errorf("%w: not compressed snapshot text", types.ErrImportParse)
			}
			return a.importSnapshot(cmd.Context(), snap)
		},
	}
}
