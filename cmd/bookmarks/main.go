package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"aggregat4/bookmarkcatalog/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.New().Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
