// Package control wires the application together: storage, cache, API
// server, health surfaces and background workers, with a graceful
// start/stop lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/fencer/internal/api"
	"github.com/vietddude/fencer/internal/core/config"
	"github.com/vietddude/fencer/internal/core/worker"
	"github.com/vietddude/fencer/internal/health"
	redisclient "github.com/vietddude/fencer/internal/infra/redis"
	"github.com/vietddude/fencer/internal/infra/storage"
	"github.com/vietddude/fencer/internal/infra/storage/memory"
	"github.com/vietddude/fencer/internal/infra/storage/postgres"
)

// Server is the composed application.
type Server struct {
	cfg config.AppConfig

	apiServer    *api.Server
	healthMon    *health.Monitor
	healthServer *health.Server
	grpcHealth   *health.GRPCServer
	pruner       *worker.Pruner

	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewServer creates the application with all dependencies initialized.
// With no database URL it falls back to in-memory storage, which is
// meant for local development only.
func NewServer(ctx context.Context, cfg config.AppConfig, debug bool) (*Server, error) {
	var (
		fenceRepo   storage.FenceRepository
		memberRepo  storage.MemberRepository
		userRepo    storage.UserRepository
		sessionRepo storage.SessionRepository
		auditRepo   storage.AuditRepository
		db          *postgres.DB
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		fenceRepo = postgres.NewFenceRepo(db)
		memberRepo = postgres.NewMemberRepo(db)
		userRepo = postgres.NewUserRepo(db)
		sessionRepo = postgres.NewSessionRepo(db)
		auditRepo = postgres.NewAuditRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		fenceRepo = memory.NewFenceRepo(store)
		memberRepo = memory.NewMemberRepo(store)
		userRepo = memory.NewUserRepo(store)
		sessionRepo = memory.NewSessionRepo(store)
		auditRepo = memory.NewAuditRepo(store)
		slog.Warn("Using Memory storage, data is not persisted")
	}

	var redisClient *redisclient.Client
	var cache api.SessionCache
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, session cache disabled", "error", err)
		} else {
			cache = redisClient
		}
	}

	authHandler := api.NewAuthHandler(cfg.Auth, userRepo, sessionRepo, auditRepo, cache)
	fenceHandler := api.NewFenceHandler(fenceRepo, memberRepo, userRepo, auditRepo, authHandler)

	apiServer := api.NewServer(cfg.Server, debug)
	apiServer.RegisterAll([]api.APIController{authHandler, fenceHandler})

	healthMon := health.NewMonitor()
	if db != nil {
		healthMon.Register(health.Component{
			Name:     "postgres",
			Critical: true,
			Check:    db.Health,
		})
	}
	if redisClient != nil {
		healthMon.Register(health.Component{
			Name:  "redis",
			Check: redisClient.Health,
		})
	}

	srv := &Server{
		cfg:          cfg,
		apiServer:    apiServer,
		healthMon:    healthMon,
		healthServer: health.NewServer(healthMon, cfg.Server.HealthPort),
		pruner:       worker.NewPruner(cfg.Retention, fenceRepo, sessionRepo),
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}
	if cfg.Server.GRPCHealthPort > 0 {
		srv.grpcHealth = health.NewGRPCServer(healthMon, cfg.Server.GRPCHealthPort)
	}
	return srv, nil
}

// Start launches every component. It returns once everything is
// running; failures of individual listeners are logged.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	if s.grpcHealth != nil {
		go func() {
			if err := s.grpcHealth.Start(ctx); err != nil {
				s.log.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	go s.pruner.Start(ctx)

	go func() {
		s.log.Info("API server listening", "port", s.cfg.Server.Port)
		if err := s.apiServer.Start(); err != nil {
			s.log.Error("API server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts everything down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping server...")

	if err := s.apiServer.Stop(ctx); err != nil {
		s.log.Warn("Failed to stop API server", "error", err)
	}

	if s.grpcHealth != nil {
		s.grpcHealth.Stop()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}
