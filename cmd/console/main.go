// Command console is the cooperative admin console for the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"coopconsole/internal/api"
	"coopconsole/internal/console"
	"coopconsole/internal/fetch"
	jwttoken "coopconsole/internal/jwt_token"
	"coopconsole/internal/layout"
	"coopconsole/internal/platform/config"
	"coopconsole/internal/platform/health"
	"coopconsole/internal/platform/logger"
	"coopconsole/internal/platform/metrics"
	"coopconsole/internal/platform/tracer"
	"coopconsole/internal/session"
	"coopconsole/internal/storage"
	"coopconsole/pkg/platform/circuit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.String("config", "", "path to a YAML config file")
		apiURL     = pflag.String("api-url", "", "backend base URL (overrides config)")
		diagAddr   = pflag.String("diag-addr", "", "serve health and metrics on this address")
		logFile    = pflag.String("log-file", "", "write JSON logs to this file")
		startView  = pflag.String("view", "", "view to open first, e.g. /association/members")
		ephemeral  = pflag.Bool("ephemeral", false, "keep the session in memory only")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *diagAddr != "" {
		cfg.Diag.Addr = *diagAddr
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *ephemeral {
		cfg.Storage.Ephemeral = true
	}

	// The terminal belongs to the UI, so logs only go to a file.
	log := logger.Discard()
	if cfg.Log.File != "" {
		fileLog, closeLog, err := logger.OpenFile(cfg.Log.File, logger.ParseLevel(cfg.Log.Level))
		if err != nil {
			return err
		}
		defer closeLog()
		log = fileLog
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	credentials, err := openStorage(cfg.Storage)
	if err != nil {
		return err
	}

	var decoderOpts []jwttoken.DecoderOption
	if cfg.Auth.JWTVerifyKey != "" {
		decoderOpts = append(decoderOpts, jwttoken.WithVerifyKey(cfg.Auth.JWTVerifyKey))
	}
	store := session.New(credentials, jwttoken.NewDecoder(decoderOpts...),
		session.WithLogger(log),
		session.WithMetrics(m),
	)

	client, err := api.FromConfig(cfg.API, store,
		api.WithTracer(tracer.NewOTel()),
		api.WithMetrics(m),
		api.WithLogger(log),
		api.OnUnauthorized(func(token string) {
			if _, err := store.LogoutIfToken(token); err != nil {
				log.Warn("forced logout could not clear the credential", "error", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	lay := layout.New(layout.WithBreakpoint(cfg.Layout.Breakpoint))
	signals := layout.NewSignals()

	if cfg.Diag.Addr != "" {
		shutdown, err := serveDiagnostics(cfg, store, client, registry, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	log.Info("console starting",
		"api", cfg.API.BaseURL,
		"ephemeral", cfg.Storage.Ephemeral,
		"breakpoint", cfg.Layout.Breakpoint,
	)

	model := console.New(console.Deps{
		Context:   ctx,
		Session:   store,
		SignIn:    client,
		Screens:   fetch.NewScreens(client, store, fetch.WithMetrics(m)),
		Layout:    lay,
		Signals:   signals,
		Logger:    log,
		StartPath: *startView,
	})
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running console: %w", err)
	}
	log.Info("console stopped")
	return nil
}

func openStorage(cfg config.Storage) (storage.Store, error) {
	if cfg.Ephemeral {
		return storage.NewMemory(), nil
	}
	var opts []storage.FileOption
	if cfg.Key != "" {
		key, err := storage.ParseSealKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithSealKey(key))
	}
	return storage.NewFile(cfg.Path, opts...), nil
}

func serveDiagnostics(cfg config.Console, store *session.Store, client *api.Client, registry *prometheus.Registry, log *slog.Logger) (func(), error) {
	h := health.New(cfg.API.BaseURL, func() health.Report {
		snap := store.Current()
		report := health.Report{
			SessionPhase: snap.Phase.String(),
			Breaker:      client.BreakerState().String(),
			BreakerOpen:  client.BreakerState() == circuit.StateOpen,
		}
		if snap.Authenticated() {
			report.Role = snap.Identity.Role.String()
			report.TokenExpiresAt = jwttoken.ExpiresAt(store.Token())
		}
		return report
	})
	h.RegisterCheck("session", func() error {
		if phase := store.Current().Phase; phase != session.PhaseReady {
			return fmt.Errorf("session is %s", phase)
		}
		return nil
	})
	h.RegisterCheck("backend", func() error {
		if state := client.BreakerState(); state == circuit.StateOpen {
			return fmt.Errorf("circuit %s", state)
		}
		return nil
	})

	srv := health.NewServer(cfg.Diag.Addr, health.Router(h, registry, log), log)
	addr, err := srv.Start()
	if err != nil {
		return nil, err
	}
	log.Info("diagnostics listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("diagnostics shutdown failed", "error", err)
		}
	}, nil
}
