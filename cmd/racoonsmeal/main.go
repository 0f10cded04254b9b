package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"racoonsmeal/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		cancel()
		os.Exit(cli.ExitCode(err))
	}
}
