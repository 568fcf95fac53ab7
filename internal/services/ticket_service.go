package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prime-labs/express-bot/internal/models"
	"github.com/prime-labs/express-bot/internal/repositories"
	"github.com/prime-labs/express-bot/internal/utils"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

const (
	promoImageWidth  = 500
	promoImageHeight = 700
)

// ErrUnknownEvent is returned by Handle for unsupported kinds or payloads.
var ErrUnknownEvent = errors.New("unknown event")

// Dependencies bundles the collaborators of IssuanceService. Publisher and
// Limiter are optional.
type Dependencies struct {
	Store     TicketStore
	Messenger Messenger
	Renderer  TicketRenderer
	Mailer    Mailer
	Numberer  TicketNumberer
	Publisher EventPublisher
	Limiter   SubmissionLimiter
	Logger    *logger.Logger

	PromoImageURL string
}

// IssuanceService welcomes new members and issues their launch party ticket
// when they reply with an email address.
type IssuanceService struct {
	store     TicketStore
	messenger Messenger
	renderer  TicketRenderer
	mailer    Mailer
	numberer  TicketNumberer
	publisher EventPublisher
	limiter   SubmissionLimiter
	logger    *logger.Logger

	promoImageURL string
}

func NewIssuanceService(deps Dependencies) *IssuanceService {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	numberer := deps.Numberer
	if numberer == nil {
		numberer = utils.RandomNumberer{}
	}
	return &IssuanceService{
		store:         deps.Store,
		messenger:     deps.Messenger,
		renderer:      deps.Renderer,
		mailer:        deps.Mailer,
		numberer:      numberer,
		publisher:     deps.Publisher,
		limiter:       deps.Limiter,
		logger:        log,
		promoImageURL: deps.PromoImageURL,
	}
}

// Handle dispatches a gateway event to its flow.
func (s *IssuanceService) Handle(ctx context.Context, kind EventKind, payload any) (Outcome, error) {
	switch kind {
	case EventMemberJoined:
		if p, ok := payload.(MemberJoined); ok {
			return s.HandleMemberJoined(ctx, p)
		}
	case EventMessageReceived:
		if p, ok := payload.(MessageReceived); ok {
			return s.HandleMessage(ctx, p)
		}
	}
	return OutcomeIgnored, fmt.Errorf("%w: %s with payload %T", ErrUnknownEvent, kind, payload)
}

// HandleMemberJoined makes sure the member has a ticket record and a DM
// channel, then sends the welcome message there. Failures are returned to the
// caller; the member sees nothing.
func (s *IssuanceService) HandleMemberJoined(ctx context.Context, ev MemberJoined) (Outcome, error) {
	if ev.User.Bot {
		return OutcomeIgnored, nil
	}
	user := ev.User

	channelID, err := s.ensureTicket(ctx, user)
	if err != nil {
		return OutcomeFailed, err
	}

	err = s.messenger.SendMessage(ctx, channelID, OutboundMessage{
		Content:     welcomeMessage(user.DisplayName()),
		ImageURL:    s.promoImageURL,
		ImageWidth:  promoImageWidth,
		ImageHeight: promoImageHeight,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to send welcome message to %s: %w", user.UserID, err)
	}
	return OutcomeWelcomed, nil
}

// ensureTicket returns the DM channel of the member, creating the channel
// and the ticket record on first join.
func (s *IssuanceService) ensureTicket(ctx context.Context, user User) (string, error) {
	ticket, err := s.store.FindByDiscordUserID(ctx, user.UserID)
	switch {
	case err == nil && ticket.DiscordDMChannelID != "":
		return ticket.DiscordDMChannelID, nil
	case err == nil:
		// Record without a channel: open one but leave the record alone.
		return s.createDMChannel(ctx, user.UserID)
	case !errors.Is(err, repositories.ErrTicketNotFound):
		return "", fmt.Errorf("failed to look up ticket for %s: %w", user.UserID, err)
	}

	channelID, err := s.createDMChannel(ctx, user.UserID)
	if err != nil {
		return "", err
	}
	number, err := s.numberer.NextTicketNumber(ctx)
	if err != nil {
		return "", err
	}

	created, err := s.store.Create(ctx, &models.Ticket{
		TicketNumber:       number,
		Name:               user.DisplayName(),
		Username:           user.Username,
		DiscordUserID:      user.UserID,
		DiscordDMChannelID: channelID,
		Status:             models.StatusJoined,
	})
	if err != nil {
		return "", err
	}
	s.publish(ctx, models.TicketCreated, created)

	if created.DiscordDMChannelID != "" {
		return created.DiscordDMChannelID, nil
	}
	return channelID, nil
}

func (s *IssuanceService) createDMChannel(ctx context.Context, userID string) (string, error) {
	channelID, err := s.messenger.CreateDMChannel(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create DM channel for %s: %w", userID, err)
	}
	return channelID, nil
}

// HandleMessage treats a direct message as an email submission. Every
// non-ignored message gets exactly one reply in its channel.
func (s *IssuanceService) HandleMessage(ctx context.Context, msg MessageReceived) (Outcome, error) {
	if msg.AuthorBot || !msg.IsDirect() {
		return OutcomeIgnored, nil
	}

	email, err := utils.ValidateEmail(msg.Content)
	if err != nil {
		s.logger.InfoContext(ctx, "rejected email submission", zap.String("discord_user_id", msg.AuthorID))
		return OutcomeInvalidEmail, s.reply(ctx, msg.ChannelID, invalidEmailMessage)
	}

	if !s.allowSubmission(ctx, msg.AuthorID) {
		return OutcomeRateLimited, s.reply(ctx, msg.ChannelID, rateLimitedMessage)
	}

	ticket, err := s.issue(ctx, msg, email)
	if err != nil {
		if replyErr := s.reply(ctx, msg.ChannelID, ticketFailedMessage); replyErr != nil {
			err = errors.Join(err, replyErr)
		}
		return OutcomeFailed, err
	}

	if err := s.reply(ctx, msg.ChannelID, ticketSentMessage); err != nil {
		return OutcomeTicketSent, err
	}
	s.markNotified(ctx, ticket)
	return OutcomeTicketSent, nil
}

// issue runs lookup, render-or-reuse, persist and mail. Any error here is
// reported to the user with the same retry prompt.
func (s *IssuanceService) issue(ctx context.Context, msg MessageReceived, email string) (*models.Ticket, error) {
	ticket, err := s.store.FindByDiscordUserID(ctx, msg.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up ticket for %s: %w", msg.AuthorID, err)
	}

	link := ticket.TicketLink
	rendered := false
	if ticket.NeedsRender() {
		s.markEmailSubmitted(ctx, ticket)

		link, err = s.renderer.RenderTicket(ctx, TicketCard{
			Name:         ticket.DisplayName(),
			Username:     ticket.Username,
			UserID:       msg.AuthorID,
			AvatarHash:   msg.AuthorAvatar,
			TicketNumber: ticket.TicketNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to render ticket for %s: %w", msg.AuthorID, err)
		}
		rendered = true
	}

	updated, err := s.store.UpdateSubmission(ctx, msg.AuthorID, email, link)
	if err != nil {
		return nil, fmt.Errorf("failed to save submission for %s: %w", msg.AuthorID, err)
	}
	if rendered {
		s.publish(ctx, models.TicketRendered, updated)
	}

	err = s.mailer.SendTicket(ctx, TicketMail{
		Email:      updated.EmailAddress,
		Name:       updated.DisplayName(),
		Username:   updated.Username,
		TicketLink: updated.TicketLink,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mail ticket to %s: %w", msg.AuthorID, err)
	}
	return updated, nil
}

func (s *IssuanceService) reply(ctx context.Context, channelID, content string) error {
	if err := s.messenger.SendMessage(ctx, channelID, OutboundMessage{Content: content}); err != nil {
		return fmt.Errorf("failed to reply in channel %s: %w", channelID, err)
	}
	return nil
}

// A limiter error lets the submission through.
func (s *IssuanceService) allowSubmission(ctx context.Context, userID string) bool {
	if s.limiter == nil {
		return true
	}
	allowed, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "submission limiter unavailable", zap.String("discord_user_id", userID), zap.Error(err))
		return true
	}
	return allowed
}

// Status bookkeeping below is best effort and never changes the reply.

func (s *IssuanceService) markEmailSubmitted(ctx context.Context, ticket *models.Ticket) {
	if !ticket.Advance(models.StatusEmailSubmitted) {
		return
	}
	if err := s.store.UpdateStatus(ctx, ticket.DiscordUserID, models.StatusEmailSubmitted); err != nil {
		s.logger.WarnContext(ctx, "failed to record email submission", zap.String("discord_user_id", ticket.DiscordUserID), zap.Error(err))
	}
}

func (s *IssuanceService) markNotified(ctx context.Context, ticket *models.Ticket) {
	if !ticket.Advance(models.StatusNotified) {
		return
	}
	if err := s.store.UpdateStatus(ctx, ticket.DiscordUserID, models.StatusNotified); err != nil {
		s.logger.WarnContext(ctx, "failed to record notification", zap.String("discord_user_id", ticket.DiscordUserID), zap.Error(err))
	}
	s.publish(ctx, models.TicketMailed, ticket)
}

func (s *IssuanceService) publish(ctx context.Context, eventType models.TicketEventType, ticket *models.Ticket) {
	if s.publisher == nil {
		return
	}
	event := models.NewTicketEvent(eventType, ticket)
	event.TraceID = logger.GetTraceID(ctx)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish ticket event",
			zap.String("type", string(eventType)),
			zap.String("discord_user_id", ticket.DiscordUserID),
			zap.Error(err),
		)
	}
}
