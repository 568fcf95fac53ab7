package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prime-labs/express-bot/internal/models"
	"github.com/prime-labs/express-bot/internal/repositories"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

// TicketFinder looks tickets up for the admin API.
type TicketFinder interface {
	FindByDiscordUserID(ctx context.Context, discordUserID string) (*models.Ticket, error)
}

type TicketHandler struct {
	Tickets TicketFinder
	Logger  *logger.Logger
}

func NewTicketHandler(tickets TicketFinder, log *logger.Logger) *TicketHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &TicketHandler{Tickets: tickets, Logger: log}
}

// GetTicket returns the ticket of the Discord user in the path.
func (h *TicketHandler) GetTicket(c *gin.Context) {
	userID := c.Param("discord_user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing discord user id"})
		return
	}

	ticket, err := h.Tickets.FindByDiscordUserID(c.Request.Context(), userID)
	if errors.Is(err, repositories.ErrTicketNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	if err != nil {
		h.Logger.ErrorContext(c.Request.Context(), "ticket lookup failed", zap.String("discord_user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ticket lookup failed"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	Checks  map[string]HealthCheck
	Timeout time.Duration
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{Checks: checks, Timeout: 2 * time.Second}
}

// Health reports 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}
