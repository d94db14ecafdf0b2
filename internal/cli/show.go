package cli

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the resources declared in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			for _, name := range s.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <resource>",
		Short: "Print a resource's current rows as CSV",
		Long: `Print a resource's current rows. Reads never take the lock; the
output reflects the last committed state at the moment of the read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			t, err := s.Load(args[0])
			if err != nil {
				return err
			}
			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(t.Columns); err != nil {
				return err
			}
			rec := make([]string, len(t.Columns))
			for _, row := range t.Rows {
				for i, col := range t.Columns {
					rec[i] = row[col]
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}
}

// closeStore releases held locks on the way out, complaining to stderr when
// that fails (the sentinel would otherwise block other writers forever).
func closeStore(s interface{ Close() error }) {
	if err := s.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "tabshare: failed to release locks: %v\n", err)
	}
}
