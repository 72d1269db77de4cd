// Copyright 2026 The Relay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package relaysrv implements the key-hiding proxy in front of the agent
// backend. Browser code talks to these routes; the static backend API key
// is injected server-side and never reaches the client.
package relaysrv

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/relayproject/relay-go/relayclient"
)

// Config holds the proxy configuration.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// BackendURL is the agent backend the proxy forwards to.
	BackendURL string
	// APIKey is the static backend credential injected on every
	// forwarded request.
	APIKey string
	// AllowedOrigins restricts CORS to the listed hosts. Empty allows all
	// origins, matching the permissive default of embedded deployments.
	AllowedOrigins []string
	// PollTimeout overrides the client's wall-clock polling ceiling.
	PollTimeout time.Duration
	// ReadTimeout and WriteTimeout bound the HTTP server.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Debug keeps gin in debug mode.
	Debug bool
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:         ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
}

// Server is the running proxy.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	client     *relayclient.Client
	ownsClient bool
}

// New creates a Server forwarding to cfg.BackendURL with a client built
// from the config.
func New(cfg *Config) (*Server, error) {
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	opts := []relayclient.Option{}
	if cfg.APIKey != "" {
		opts = append(opts, relayclient.WithAPIKey(cfg.APIKey))
	}
	if cfg.PollTimeout > 0 {
		opts = append(opts, relayclient.WithConfig(relayclient.Config{PollTimeout: cfg.PollTimeout}))
	}
	s := NewWithClient(cfg, relayclient.New(cfg.BackendURL, opts...))
	s.ownsClient = true
	return s, nil
}

// NewWithClient creates a Server around an existing client. The caller
// keeps ownership of the client.
func NewWithClient(cfg *Config, client *relayclient.Client) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine: engine,
		client: client,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	agent := api.Group("/agent")
	{
		agent.POST("/submit", s.handleSubmit)
		agent.GET("/tasks/:id", s.handleGetTask)
		agent.POST("/upload", s.handleUpload)
	}
}

// Handler exposes the route tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving and blocks until the listener fails or the server
// is shut down.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("relay proxy: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and releases the client when the
// server created it.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.ownsClient {
		if destroyErr := s.client.Destroy(); err == nil {
			err = destroyErr
		}
	}
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": s.client.BaseURL()})
}
