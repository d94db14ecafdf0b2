package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tabshare/tabshare/internal/identity"
)

var staleWarn = color.New(color.FgRed, color.Bold)

// NewLockStatusCommand creates the lock-status command.
func NewLockStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock-status [resource]",
		Short: "Show who holds each resource's write lock",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			names := s.Names()
			if len(args) == 1 {
				names = args[:1]
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				info, err := s.LockStatus(name)
				if err != nil {
					return err
				}
				switch {
				case !info.Held:
					fmt.Fprintf(out, "%s: unlocked\n", name)
				case info.PossiblyStale:
					fmt.Fprintf(out, "%s: locked by %s since %s %s\n", name, info.Owner,
						identity.Timestamp(info.Since), staleWarn.Sprint("(possibly stale)"))
				case info.Since.IsZero():
					fmt.Fprintf(out, "%s: locked by %s\n", name, info.Owner)
				default:
					fmt.Fprintf(out, "%s: locked by %s since %s\n", name, info.Owner, identity.Timestamp(info.Since))
				}
			}
			return nil
		},
	}
}

// NewUnlockCommand creates the unlock command.
func NewUnlockCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "unlock <resource>",
		Short: "Force-remove a resource's lock sentinel",
		Long: `Remove a resource's lock sentinel left behind by a crashed process.

This breaks mutual exclusion for any writer that still holds the lock, so it
refuses to run without --force. Check lock-status first and make sure the
holder is really gone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("unlock breaks the lock for a live holder; rerun with --force if the holder is gone")
			}
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			if err := s.Unlock(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "actually remove the sentinel")
	return cmd
}
