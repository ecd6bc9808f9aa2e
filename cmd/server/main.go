// Command server runs the reminder engine as a standalone HTTP backend.
//
// Startup order: .env → config → logging → OTel → database → router →
// http.Server with graceful shutdown. The source-of-truth stores (tasks,
// meetings, people, plans, projects) are injected; the standalone binary
// wires empty stubs so the engine endpoints work against an empty world
// until an embedding application provides real ones.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-growth-backend/internal/config"
	"github.com/tbourn/go-growth-backend/internal/domain"
	httpapi "github.com/tbourn/go-growth-backend/internal/http"
	"github.com/tbourn/go-growth-backend/internal/observability"
	"github.com/tbourn/go-growth-backend/internal/repo"
	"github.com/tbourn/go-growth-backend/internal/sysutil"
)

// emptySources satisfies every generation source interface with empty reads.
type emptySources struct{}

func (emptySources) ListTasks(context.Context, string) ([]domain.Task, error) { return nil, nil }
func (emptySources) ListSchedules(context.Context, string) ([]domain.MeetingSchedule, error) {
	return nil, nil
}
func (emptySources) ListPeople(context.Context, string) ([]domain.Person, error) { return nil, nil }
func (emptySources) DisplayNames(context.Context, string, []string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (emptySources) ListActivePlans(context.Context, string) ([]domain.ChangePlan, error) {
	return nil, nil
}
func (emptySources) ListActiveProjects(context.Context, string) ([]domain.Project, error) {
	return nil, nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	src := httpapi.Sources{
		Tasks:    emptySources{},
		Meetings: emptySources{},
		People:   emptySources{},
		Plans:    emptySources{},
		Projects: emptySources{},
	}
	httpapi.RegisterRoutes(engine, db, src, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
