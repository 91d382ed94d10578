package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumora/shadowgate/internal/gate/app"

	"github.com/joho/godotenv"
)

//	@title			Shadowgate API
//	@version		1.0
//	@description	Shadow identity switching gate: verified, audited, rate limited profile switching.
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	// Optional; production injects real env vars.
	_ = godotenv.Load()

	a, err := app.New(app.LoadConfig())
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
