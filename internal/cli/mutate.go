package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "add <resource>",
		Short: "Add a row to a resource",
		Long: `Add a row. Columns not named with --set default to the empty string.

Example:
  tabshare add Widgets --set KEY=X1 --set VALUE=10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parsePairs(sets)
			if err != nil {
				return err
			}
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			if err := opts.mutateWith(cmd, func() error { return s.Add(args[0], row) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added row to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "column value as col=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var keys, sets []string

	cmd := &cobra.Command{
		Use:   "update <resource>",
		Short: "Update the first row matching a key",
		Long: `Update the first row whose values match every --key pair exactly.
When more than one row matches, the first wins; zero matches fail.

Example:
  tabshare update Widgets --key KEY=X1 --set KEY=X1 --set VALUE=20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parsePairs(keys)
			if err != nil {
				return err
			}
			row, err := parsePairs(sets)
			if err != nil {
				return err
			}
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			if err := opts.mutateWith(cmd, func() error { return s.Update(args[0], key, row) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated row in %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&keys, "key", nil, "match column as col=value (repeatable)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "new column value as col=value (repeatable)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	var keys []string

	cmd := &cobra.Command{
		Use:   "delete <resource>",
		Short: "Delete the first row matching a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parsePairs(keys)
			if err != nil {
				return err
			}
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			if err := opts.mutateWith(cmd, func() error { return s.Delete(args[0], key) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted row from %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&keys, "key", nil, "match column as col=value (repeatable)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
