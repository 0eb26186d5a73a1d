// Package cli provides the command-line interface for FinDocHub
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// Run starts the CLI application
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd(Version)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
