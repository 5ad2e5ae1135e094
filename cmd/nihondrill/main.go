package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Initialize context that cancelled on SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:], os.Stdout); err != nil {
		// Logger may be not configured yet
		slog.Error("can't run app, sorry", "error", err.Error())
		os.Exit(1)
	}
}

// Load config from .env, environment and flags (in that order, later wins)
// Then either run the server or cli command
func run(
	ctx context.Context,
	getenv func(string) string,
	getwd func() (string, error),
	args []string,
	out io.Writer,
) error {
	c := NewConfig()

	if err := c.LoadDotEnv(getwd); err != nil {
		return fmt.Errorf("error while loading .env. Err: %w", err)
	}
	if err := c.LoadEnv(getenv); err != nil {
		return fmt.Errorf("error while loading env. Err: %w", err)
	}
	if err := c.LoadVersion(getwd); err != nil {
		return fmt.Errorf("error while reading version. Err: %w", err)
	}
	positional, err := c.ParseFlags(args)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config. Err: %w", err)
	}

	switch {
	case len(positional) == 0:
	case positional[0] == newUserCommand:
		return runNewUser(ctx, c, positional[1:], out)
	default:
		return errUsage
	}

	srv, err := NewServerApp(ctx, c)
	if err != nil {
		return fmt.Errorf("can't initialize app. Err: %w", err)
	}

	if err := srv.Run(ctx); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error. Err: %w", err)
	}

	return nil
}
