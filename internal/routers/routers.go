package routers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/handlers"
	"github.com/prime-labs/express-bot/internal/middlewares"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

// Handlers groups everything the admin router serves.
type Handlers struct {
	Tickets *handlers.TicketHandler
	Health  *handlers.HealthHandler
	Metrics http.Handler
}

// SetupRoutes builds the admin engine.
func SetupRoutes(cfg config.AdminConfig, h Handlers, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogMiddleware(log))
	if cfg.MaxConcurrent > 0 {
		r.Use(middlewares.MaxConcurrencyMiddleware(cfg.MaxConcurrent))
	}

	if len(cfg.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowMethods = []string{http.MethodGet}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middlewares.AdminTokenHeader}
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", h.Health.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	RegisterTicketRoutes(r, cfg.Token, h.Tickets)
	return r
}

// RegisterTicketRoutes mounts the token-protected ticket lookup.
func RegisterTicketRoutes(r *gin.Engine, token string, ticketHandler *handlers.TicketHandler) {
	ticketGroup := r.Group("/api/v1/tickets")
	ticketGroup.Use(middlewares.AdminTokenMiddleware(token))
	{
		ticketGroup.GET("/:discord_user_id", ticketHandler.GetTicket)
	}
}

// Server runs the admin engine until Shutdown.
type Server struct {
	srv    *http.Server
	logger *logger.Logger
}

func NewServer(addr string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start serves in the background; listen errors are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info("admin server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
