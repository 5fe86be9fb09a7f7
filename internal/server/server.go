// Package server exposes the review pipeline over HTTP: upload a
// report, analyze it, preview it with highlighted findings and download
// the annotated copy.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/veridoc-io/reportlint/internal/config"
	"github.com/veridoc-io/reportlint/internal/llm"
	"github.com/veridoc-io/reportlint/internal/store"
)

// Server wires the document store and the provider registry into an
// HTTP API.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	registry *llm.Registry
	log      *logrus.Entry
}

// New creates a server.
func New(cfg *config.Config, st *store.Store, registry *llm.Registry) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		registry: registry,
		log:      logrus.WithField("component", "server"),
	}
}

// Router builds the gin engine with all API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		docs := api.Group("/documents")
		{
			docs.POST("", s.Upload)
			docs.GET("", s.List)
			docs.GET("/:id", s.Detail)
			docs.POST("/:id/analyze", s.Analyze)
			docs.GET("/:id/download", s.Download)
			docs.DELETE("/:id", s.Delete)
		}
		api.GET("/providers", s.Providers)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	return r
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	addr := s.cfg.Server.Addr
	s.log.WithField("addr", addr).Info("starting review server")
	if err := s.Router().Run(addr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

// Providers lists the registered review-model providers.
func (s *Server) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": s.registry.List(),
		"default":   s.cfg.DefaultProvider,
	})
}
