// Package app assembles the gate's storage, services and HTTP server into
// a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	gatehttp "github.com/lumora/shadowgate/internal/gate/http"
	"github.com/lumora/shadowgate/internal/gate/service"
	"github.com/lumora/shadowgate/internal/gate/store"
	"github.com/lumora/shadowgate/internal/gate/store/drivers/postgres"
	"github.com/lumora/shadowgate/internal/gate/store/drivers/sqlite"
	"github.com/lumora/shadowgate/pkg/cryptox"
	"github.com/lumora/shadowgate/pkg/slogx"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type App struct {
	cfg   Config
	log   *slog.Logger
	store store.Store

	server       *http.Server
	housekeeping *service.HousekeepingService
}

func New(cfg Config) (*App, error) {
	log := slogx.New(slogx.Config{
		Service: "shadowgate",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	cryptox.SetPepperPath(filepath.Join(cfg.DataDir, "pepper"))

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	signer, verifier, err := loadKeys(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	limits := &service.LimitsService{Store: st, Log: log}
	rateLimit := &service.RateLimitService{Store: st, Log: log}
	audit := &service.AuditService{Store: st, Log: log}
	credentials := &service.CredentialService{Store: st, Log: log, RateLimit: rateLimit, TOTPIssuer: cfg.TOTPIssuer}
	gate := &service.GateService{
		Store:           st,
		Limits:          limits,
		RateLimit:       rateLimit,
		Audit:           audit,
		Signer:          signer,
		Issuer:          cfg.Issuer,
		ProfileTokenTTL: cfg.ProfileTokenTTL,
		Log:             log,
	}

	router := gatehttp.NewRouter(gatehttp.Deps{
		Log:           log,
		Verifier:      verifier,
		Store:         st,
		Gate:          gate,
		Credentials:   credentials,
		Limits:        limits,
		Audit:         audit,
		EnableSwagger: cfg.EnableSwagger,
	})

	return &App{
		cfg:   cfg,
		log:   log,
		store: st,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		housekeeping: &service.HousekeepingService{
			Store:    st,
			Log:      log,
			Interval: cfg.HousekeepingInterval,
		},
	}, nil
}

func openStore(cfg Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite", "":
		return sqlite.NewStore(cfg.DBDSN)
	case "postgres":
		return postgres.NewStore(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	hkCtx, stopHousekeeping := context.WithCancel(context.Background())
	defer stopHousekeeping()
	go a.housekeeping.Run(hkCtx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("gate listening", "addr", a.cfg.Addr, "db_driver", a.cfg.DBDriver)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		_ = a.store.Close()
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}
