// Package api implements the browser-facing HTTP API: authentication
// and CRUD route handlers for geofences and membership.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vietddude/fencer/internal/core/config"
)

// APIController is a route group that can be mounted on the server.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup)
	Handlers() []gin.HandlerFunc
}

// Server wraps the gin engine and the underlying http.Server so the
// control plane can shut it down gracefully.
type Server struct {
	engine *gin.Engine
	server *http.Server
}

// NewServer creates the API server. In debug mode gin stays verbose
// and CORS is opened for the local frontend dev server.
func NewServer(cfg config.ServerConfig, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		RequestLogger(),
		Recovery(),
	)

	if debug {
		origins := cfg.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:5173"}
		}
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: origins,
				AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	return &Server{
		engine: engine,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: engine,
		},
	}
}

// RegisterAll mounts the controllers under /api.
func (s *Server) RegisterAll(controllers []APIController) {
	r := s.engine.Group("api")
	for _, c := range controllers {
		c.Register(r.Group(c.BasePath(), c.Handlers()...))
	}
}

// Engine exposes the gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start serves until Stop or a listener error.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
