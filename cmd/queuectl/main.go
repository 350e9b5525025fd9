package main

import (
	"context"
	"fmt"
	"os"

	"github.com/target/queuectl/internal/bootstrap"
	"github.com/target/queuectl/internal/cli"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger := bootstrap.InitLogger(cfg.SlogLevel())
	return cli.Execute(ctx, &cfg, logger, args)
}
