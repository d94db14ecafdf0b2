// Package cli implements the tabshare command line interface, a thin
// presentation wrapper over the config store.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tabshare/tabshare/internal/catalog"
	"github.com/tabshare/tabshare/internal/store"
	"github.com/tabshare/tabshare/internal/tabular"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	CatalogPath string
	DataDir     string
	LogLevel    string
	// Wait retries a mutation this many times when the resource is locked,
	// instead of failing on the first conflict. 0 fails immediately.
	Wait int
}

// NewRootCommand creates the tabshare root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tabshare",
		Short: "Shared CSV configuration store with locking and audit history",
		Long: `tabshare lets multiple users on a shared filesystem view and edit
CSV-backed configuration files. Writers are serialized by an advisory lock
file next to each resource; every add/update/delete is recorded in a shared
append-only history ledger with before/after snapshots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := catalog.ParseEnv()
			if err != nil {
				return err
			}
			if opts.CatalogPath == "" {
				opts.CatalogPath = env.Catalog
			}
			if opts.DataDir == "" {
				opts.DataDir = env.DataDir
			}
			if opts.LogLevel == "" {
				opts.LogLevel = env.LogLevel
			}
			return setupLogging(opts.LogLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.CatalogPath, "catalog", "", "catalog file (or TABSHARE_CATALOG)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "base directory for relative catalog paths (or TABSHARE_DATA_DIR)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (or TABSHARE_LOG_LEVEL)")
	cmd.PersistentFlags().IntVar(&opts.Wait, "wait", 0, "retry a locked mutation up to N times instead of failing")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewLockStatusCommand(opts))
	cmd.AddCommand(NewUnlockCommand(opts))

	return cmd
}

// setupLogging installs a tinted slog handler on stderr. Color is dropped
// when stderr is not a terminal.
func setupLogging(level string) error {
	ll := &slog.LevelVar{}
	switch strings.ToLower(level) {
	case "", "info":
		ll.Set(slog.LevelInfo)
	case "debug":
		ll.Set(slog.LevelDebug)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level %q", level)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
	return nil
}

// openStore loads the catalog and builds the store.
func (o *RootOptions) openStore() (*store.Store, error) {
	if o.CatalogPath == "" {
		return nil, fmt.Errorf("no catalog: pass --catalog or set TABSHARE_CATALOG")
	}
	env, err := catalog.ParseEnv()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(o.CatalogPath, o.DataDir)
	if err != nil {
		return nil, err
	}
	env.Apply(cat)
	return store.New(cat, store.Options{})
}

// mutateWith runs fn directly, or paced under --wait when set.
func (o *RootOptions) mutateWith(cmd *cobra.Command, fn func() error) error {
	if o.Wait <= 0 {
		return fn()
	}
	return store.RetryLocked(cmd.Context(), o.Wait, time.Duration(0), fn)
}

// parsePairs converts repeated "col=value" arguments into a row.
func parsePairs(pairs []string) (tabular.Row, error) {
	row := make(tabular.Row, len(pairs))
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid pair %q: want col=value", p)
		}
		row[col] = val
	}
	return row, nil
}
