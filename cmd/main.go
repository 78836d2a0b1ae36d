package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

const (
	appName = "Cadence"
	appID   = "com.cadence.app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
