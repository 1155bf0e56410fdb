// Package main contains the entrypoint for the nanorelay service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgard/nanorelay/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:])
	stop()
	os.Exit(exitCode)
}

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitConfig = 2
)

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	if errors.Is(err, config.ErrConfiguration) {
		return exitConfig
	}
	return exitError
}
