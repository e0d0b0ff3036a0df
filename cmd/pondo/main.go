// Command pondo is the terminal client: it renders the finance screens and
// posts transactions, budgets and goal contributions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pondo/internal/cli"
	"pondo/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", log.FieldError, err)
		os.Exit(1)
	}

	err = run(ctx, os.Args[1:], rt, os.Stdout)
	if cerr := rt.Close(); cerr != nil {
		logger.Warn("Failed to close runtime", log.FieldError, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
