package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/backup"
	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/internal/sqlite"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// userError marks a failure caused by the invocation itself: bad arguments,
// bad input files, or records that fail validation.
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) error {
	return userError{fmt.Errorf(format, args...)}
}

// userSentinels are library errors that describe bad input rather than a
// broken system.
var userSentinels = []error{
	types.ErrValidation,
	types.ErrImportParse,
	types.ErrUnknownKind,
	types.ErrUnknownIndex,
	types.ErrKindMismatch,
	types.ErrInvalidKey,
	types.ErrNotFound,
	types.ErrCategoryNotFound,
	types.ErrCategoryInUse,
	types.ErrDuplicateCategory,
	types.ErrInvalidCategory,
	types.ErrInvalidFileData,
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue userError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, sentinel := range userSentinels {
		if errors.Is(err, sentinel) {
			return exitUserError
		}
	}
	return exitSysError
}

// exactArgs is cobra.ExactArgs reporting a user error.
func exactArgs(n int) cobra.PositionalArgs {
	return wrapArgs(cobra.ExactArgs(n))
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return wrapArgs(cobra.RangeArgs(lo, hi))
}

func wrapArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return userError{err}
		}
		return nil
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}

// printError reports err on stderr, as JSON when --json is set. Validation
// failures list every violated field.
func (a *app) printError(err error) {
	var verr *types.ValidationError
	if a.jsonOut {
		body := map[string]any{"error": err.Error()}
		if errors.As(err, &verr) {
			body["violations"] = verr.Violations
		}
		out, _ := json.Marshal(body)
		fmt.Fprintln(a.stderr, string(out))
		return
	}
	fmt.Fprintln(a.stderr, "caremon:", err)
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			fmt.Fprintln(a.stderr, "  -", v.String())
		}
	}
}

// message prints a human-readable line, or {"message": ...} with --json.
func (a *app) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if a.jsonOut {
		return a.printJSON(map[string]string{"message": msg})
	}
	fmt.Fprintln(a.stdout, msg)
	return nil
}

// openStore opens the fallback slot and the database on first use. The
// database itself initializes lazily on its first operation.
func (a *app) openStore(ctx context.Context) (*sqlite.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := a.openSlot(ctx); err != nil {
		return nil, err
	}
	a.store = sqlite.New(a.settings.Storage, a.slot, a.logger)
	return a.store, nil
}

func (a *app) openSlot(ctx context.Context) error {
	if a.slot != nil {
		return nil
	}
	slot, err := fallback.Open(ctx, a.settings.Storage.Fallback, a.settings.FallbackDir, a.logger)
	if err != nil {
		return fmt.Errorf("open fallback slot: %w", err)
	}
	a.slot = slot
	return nil
}

// openBackups returns the backup manager writing into the export directory.
func (a *app) openBackups(ctx context.Context) (*backup.Manager, error) {
	if a.backups != nil {
		return a.backups, nil
	}
	if err := a.openSlot(ctx); err != nil {
		return nil, err
	}
	a.backups = backup.New(a.settings.Storage.ExportDir, a.slot, a.logger,
		backup.WithUsagePaths(a.usagePaths()...))
	return a.backups, nil
}

// usagePaths lists the data directory plus the fallback directory when it
// lives elsewhere.
func (a *app) usagePaths() []string {
	data := a.settings.Storage.DataDir
	out := []string{data}
	fb := a.settings.FallbackDir
	if a.settings.Storage.Fallback.Backend != types.FallbackRedis && !within(fb, data) {
		out = append(out, fb)
	}
	return out
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, strings.TrimSuffix(dir, string(os.PathSeparator))+string(os.PathSeparator))
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing database", zap.Error(err))
		}
	}
	if a.slot != nil {
		if err := a.slot.Close(); err != nil {
			a.logger.Warn("closing fallback slot", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// readInput reads the named file, or stdin when name is "-" or empty.
func (a *app) readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(a.stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, userErrorf("read %s: %w", name, err)
	}
	return data, nil
}

func parseKind(s string) (types.Kind, error) {
	kind, err := types.ParseKind(s)
	if err != nil {
		return "", userErrorf("%w (valid: %s)", err, kindList())
	}
	return kind, nil
}

func kindList() string {
	names := make([]string, len(types.AllKinds))
	for i, k := range types.AllKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
