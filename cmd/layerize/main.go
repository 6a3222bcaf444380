package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Same .env as the server; flags still win.
	_ = godotenv.Load()

	var logLevel string
	root := &cobra.Command{
		Use:           "layerize",
		Short:         "Split PDF pages into z-ordered layers and render them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "error"), "log level: debug|info|warn|error")

	root.AddCommand(processCmd(&logLevel))
	root.AddCommand(inspectCmd(&logLevel))
	root.AddCommand(composeCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
