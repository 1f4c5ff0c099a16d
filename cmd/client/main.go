package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chathub/internal/client"
	"github.com/Tyrowin/chathub/internal/server"
)

func main() {
	var (
		name    string
		address string
		port    int
	)
	flag.StringVar(&name, "name", "", "display name (random when empty)")
	flag.StringVar(&name, "n", "", "display name (shorthand)")
	flag.StringVar(&address, "address", server.DefaultAddress, "chat hub address")
	flag.StringVar(&address, "a", server.DefaultAddress, "chat hub address (shorthand)")
	flag.IntVar(&port, "port", server.DefaultPort, "chat hub port")
	flag.IntVar(&port, "p", server.DefaultPort, "chat hub port (shorthand)")
	flag.Parse()

	if name == "" {
		name = client.RandomName()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Connecting to chat server as %s...\n", name)
	c, err := client.Dial(ctx, client.URL(address, port), name, os.Stdout, logger)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		stop()
		os.Exit(1)
	}

	if err := c.Run(ctx, os.Stdin); err != nil {
		logger.Error("chat session ended", "error", err)
		stop()
		os.Exit(1)
	}
}
