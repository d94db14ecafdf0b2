// Package main is the entry point for the tabshare CLI.
//
// tabshare is a multi-writer store for CSV-backed configuration files on a
// shared filesystem: advisory lock files serialize writers across machines,
// and every mutation is recorded in a shared append-only history ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tabshare/tabshare/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tabshare: %v\n", err)
		os.Exit(1)
	}
}
