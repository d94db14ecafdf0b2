package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tabshare/tabshare/internal/ledger"
)

var (
	opAdd    = color.New(color.FgGreen, color.Bold)
	opEdit   = color.New(color.FgYellow, color.Bold)
	opDelete = color.New(color.FgRed, color.Bold)
	faint    = color.New(color.Faint)
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var limit int
	var showValues bool

	cmd := &cobra.Command{
		Use:   "history [resource]",
		Short: "Show the audit history, most recent first",
		Long: `Show ledger entries, newest first. With a resource argument only that
resource's entries are shown; without one the full shared ledger is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			entries, err := s.History(name)
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			for _, e := range entries {
				printEntry(cmd, e, showValues)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most N entries (0 = all)")
	cmd.Flags().BoolVar(&showValues, "values", false, "include before/after snapshots")
	return cmd
}

func printEntry(cmd *cobra.Command, e ledger.Entry, showValues bool) {
	out := cmd.OutOrStdout()
	tag := e.Operation
	switch e.Operation {
	case ledger.OpAdd:
		tag = opAdd.Sprint(e.Operation)
	case ledger.OpEdit:
		tag = opEdit.Sprint(e.Operation)
	case ledger.OpDelete:
		tag = opDelete.Sprint(e.Operation)
	}
	fmt.Fprintf(out, "%s  %-6s %s %s %s  %s\n", faint.Sprint(e.Timestamp), tag, e.ConfigFile, e.RowKey, faint.Sprint(e.UserID), e.ChangeSummary)
	if showValues {
		if e.OldValues != "" {
			fmt.Fprintf(out, "    before: %s\n", e.OldValues)
		}
		if e.NewValues != "" {
			fmt.Fprintf(out, "    after:  %s\n", e.NewValues)
		}
	}
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Repair the history ledger",
		Long: strings.TrimSpace(`
Rewrite the ledger as a canonical header plus the records that still decode
cleanly, dropping leftovers from the legacy free-text format. The original
file is copied to a timestamped .backup_ sibling first.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			return s.RepairHistory()
		},
	}
}
