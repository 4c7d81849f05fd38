package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"gitlab.com/tozd/go/errors"
)

func main() {
	os.Exit(exitCode(os.Stderr, run(context.Background(), os.Args[1:])))
}

func run(ctx context.Context, args []string) error {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)

	if info, ok := debug.ReadBuildInfo(); ok {
		rootCmd.Version = info.Main.Version
	} else {
		rootCmd.Version = "unknown"
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}
	return nil
}

// exitCode reports err on w and returns the process exit status for it.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(w, err)
	return 1
}
