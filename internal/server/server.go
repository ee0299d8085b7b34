package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hemanta-dev/learn-subscription-gql/config"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/handler"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/middleware"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/transport/httpdto"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/websocket"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	hub        *websocket.Hub
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

// HealthChecker reports store health and live subscriber counts.
type HealthChecker interface {
	Health(ctx context.Context) error
	SubscriberCount() int
}

type Handlers struct {
	GraphQL *handler.GraphQLHandler
	Health  HealthChecker
}

func New(cfg *config.Config, hub *websocket.Hub, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
		hub:    hub,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := handlers.Health.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		status := httpdto.HealthResponse{
			Status:      "healthy",
			Subscribers: handlers.Health.SubscriberCount(),
		}
		if s.hub != nil {
			status.Clients = s.hub.GetClientCount()
			status.Operations = s.hub.GetOperationCount()
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
	})

	s.engine.POST(s.config.GraphQLPath, handlers.GraphQL.Query)
	s.engine.GET(s.config.GraphQLPath, handlers.GraphQL.Serve)
}

func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	if s.logger != nil {
		s.logger.Infof("Server ready at http://localhost:%s%s", s.config.AppPort, s.config.GraphQLPath)
		s.logger.Infof("Subscriptions ready at ws://localhost:%s%s", s.config.AppPort, s.config.GraphQLPath)
	}

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}
	return s.Shutdown()
}

// Shutdown stops accepting requests, ends every subscription and waits for
// in-flight HTTP requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	// hijacked websocket connections are invisible to http.Server.Shutdown
	if s.hub != nil {
		s.hub.Shutdown()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
