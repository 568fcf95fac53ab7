package services

import (
	"context"

	"github.com/prime-labs/express-bot/internal/models"
)

// TicketStore persists one ticket per Discord user.
type TicketStore interface {
	FindByDiscordUserID(ctx context.Context, discordUserID string) (*models.Ticket, error)
	Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	UpdateSubmission(ctx context.Context, discordUserID, email, ticketLink string) (*models.Ticket, error)
	UpdateStatus(ctx context.Context, discordUserID string, status models.TicketStatus) error
}

// OutboundMessage is a chat message with an optional embedded image.
type OutboundMessage struct {
	Content     string
	ImageURL    string
	ImageWidth  int
	ImageHeight int
}

// Messenger is the messaging platform REST surface.
type Messenger interface {
	CreateDMChannel(ctx context.Context, userID string) (channelID string, err error)
	SendMessage(ctx context.Context, channelID string, msg OutboundMessage) error
}

// TicketCard holds what is printed on a ticket image.
type TicketCard struct {
	Name         string
	Username     string
	UserID       string
	AvatarHash   string
	TicketNumber string
}

// TicketRenderer turns a card into a hosted image URL.
type TicketRenderer interface {
	RenderTicket(ctx context.Context, card TicketCard) (imageURL string, err error)
}

// TicketMail addresses a ticket mail.
type TicketMail struct {
	Email      string
	Name       string
	Username   string
	TicketLink string
}

// Mailer sends the ticket mail with the calendar invite.
type Mailer interface {
	SendTicket(ctx context.Context, mail TicketMail) error
}

// TicketNumberer assigns ticket numbers to new tickets.
type TicketNumberer interface {
	NextTicketNumber(ctx context.Context) (string, error)
}

// EventPublisher emits ticket lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TicketEvent) error
}

// SubmissionLimiter bounds how often one user may submit an email.
type SubmissionLimiter interface {
	Allow(ctx context.Context, discordUserID string) (bool, error)
}
