package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code. Command errors are
// reported on stdout, where scripts reading results expect them.
func run(args []string, stdout, stderr io.Writer) int {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCmd()
	ctx := shutdownContext(parent, slog.New(slog.NewTextHandler(stderr, nil)), commandPath(cmd, args))

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}

	return 0
}
