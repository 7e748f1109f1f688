package web

import (
	"context"
	"net/http"

	"datachat/chat"
	"datachat/config"
	"datachat/web/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router     *gin.Engine
	controller *chat.Controller
	logger     *zap.Logger
	config     *config.Config
}

func NewServer(controller *chat.Controller, logger *zap.Logger, config *config.Config) *Server {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		// Add logger to context
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router:     router,
		controller: controller,
		logger:     logger,
		config:     config,
	}

	// The sidebar refetches the roster on its own; the notification is
	// one-way.
	controller.SetRosterListener(func() {
		logger.Debug("Session roster changed")
	})

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	chatHandler := handlers.NewChatHandler(s.controller, s.logger)
	sessionHandler := handlers.NewSessionHandler(s.controller, s.logger)

	s.router.GET("/", chatHandler.View)
	s.router.POST("/chat", chatHandler.Ask)
	s.router.POST("/messages/:id/toggle", chatHandler.Toggle)

	s.router.GET("/sessions", sessionHandler.List)
	s.router.POST("/sessions", sessionHandler.Create)
	s.router.GET("/session/:sid", sessionHandler.Activate)
	s.router.POST("/dataset", sessionHandler.SetDataset)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
