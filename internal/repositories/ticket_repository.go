package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	logger "github.com/prime-labs/express-bot/middleware/log"
	"github.com/prime-labs/express-bot/internal/models"
)

// ErrTicketNotFound is returned when no ticket exists for a Discord user.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketCache is the optional read-through cache in front of the tickets table.
type TicketCache interface {
	GetTicket(ctx context.Context, discordUserID string) ([]byte, bool, error)
	SetTicket(ctx context.Context, discordUserID string, data []byte) error
	DelTicket(ctx context.Context, discordUserID string) error
}

type TicketRepository struct {
	db     *gorm.DB
	cache  TicketCache
	logger *logger.Logger
}

// NewTicketRepository builds a repository; cache may be nil.
func NewTicketRepository(db *gorm.DB, cache TicketCache, log *logger.Logger) *TicketRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &TicketRepository{db: db, cache: cache, logger: log}
}

// FindByDiscordUserID returns the ticket of a Discord user, preferring the cache.
func (r *TicketRepository) FindByDiscordUserID(ctx context.Context, discordUserID string) (*models.Ticket, error) {
	if ticket := r.cached(ctx, discordUserID); ticket != nil {
		return ticket, nil
	}

	ticket, err := r.load(ctx, discordUserID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, ticket)
	return ticket, nil
}

// Create inserts a ticket. If another event already created the row for the
// same user, the stored row is returned instead so there is never more than
// one ticket per user.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if ticket.Status == "" {
		ticket.Status = models.StatusJoined
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "discord_user_id"}},
			DoNothing: true,
		}).
		Create(ticket)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create ticket for %s: %w", ticket.DiscordUserID, res.Error)
	}
	r.evict(ctx, ticket.DiscordUserID)

	if res.RowsAffected == 0 {
		return r.load(ctx, ticket.DiscordUserID)
	}
	return ticket, nil
}

// UpdateSubmission records the submitted email and the ticket link, marks the
// ticket ready and returns the row as stored after the update. A ticket that
// was already notified keeps its status.
func (r *TicketRepository) UpdateSubmission(ctx context.Context, discordUserID, email, ticketLink string) (*models.Ticket, error) {
	var ticket models.Ticket
	res := r.db.WithContext(ctx).
		Model(&ticket).
		Clauses(clause.Returning{}).
		Where("discord_user_id = ?", discordUserID).
		Updates(map[string]any{
			"email_address": email,
			"ticket_link":   ticketLink,
			"status": gorm.Expr("CASE WHEN status = ? THEN status ELSE ? END",
				models.StatusNotified, models.StatusTicketReady),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update ticket for %s: %w", discordUserID, res.Error)
	}
	r.evict(ctx, discordUserID)

	if res.RowsAffected == 0 {
		return nil, ErrTicketNotFound
	}
	return &ticket, nil
}

// UpdateStatus sets the lifecycle status of a ticket.
func (r *TicketRepository) UpdateStatus(ctx context.Context, discordUserID string, status models.TicketStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("discord_user_id = ?", discordUserID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status for %s: %w", discordUserID, res.Error)
	}
	r.evict(ctx, discordUserID)

	if res.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) load(ctx context.Context, discordUserID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Where("discord_user_id = ?", discordUserID).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ticket for %s: %w", discordUserID, err)
	}
	return &ticket, nil
}

// Cache failures are logged and otherwise ignored; the database stays authoritative.

func (r *TicketRepository) cached(ctx context.Context, discordUserID string) *models.Ticket {
	if r.cache == nil {
		return nil
	}
	data, found, err := r.cache.GetTicket(ctx, discordUserID)
	if err != nil {
		r.logger.WarnContext(ctx, "ticket cache read failed", zap.String("discord_user_id", discordUserID), zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	var ticket models.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		r.evict(ctx, discordUserID)
		return nil
	}
	return &ticket
}

func (r *TicketRepository) store(ctx context.Context, ticket *models.Ticket) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(ticket)
	if err != nil {
		return
	}
	if err := r.cache.SetTicket(ctx, ticket.DiscordUserID, data); err != nil {
		r.logger.WarnContext(ctx, "ticket cache write failed", zap.String("discord_user_id", ticket.DiscordUserID), zap.Error(err))
	}
}

func (r *TicketRepository) evict(ctx context.Context, discordUserID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.DelTicket(ctx, discordUserID); err != nil {
		r.logger.WarnContext(ctx, "ticket cache eviction failed", zap.String("discord_user_id", discordUserID), zap.Error(err))
	}
}
