package handlers

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/prime-labs/express-bot/internal/services"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

// EventService handles translated gateway events.
type EventService interface {
	Handle(ctx context.Context, kind services.EventKind, payload any) (services.Outcome, error)
}

// JobSubmitter runs jobs off the gateway goroutine.
type JobSubmitter interface {
	Submit(job func()) error
}

// HandlerRegistrar is satisfied by discordgo sessions.
type HandlerRegistrar interface {
	AddHandler(handler any) func()
}

// GatewayHandler feeds Discord gateway events into the issuance service
// through the worker pool.
type GatewayHandler struct {
	service EventService
	pool    JobSubmitter
	logger  *logger.Logger
	observe logger.EventObserver
	timeout time.Duration
}

// NewGatewayHandler wires the handler. observe may be nil; a zero timeout
// leaves events unbounded.
func NewGatewayHandler(service EventService, pool JobSubmitter, log *logger.Logger, observe logger.EventObserver, timeout time.Duration) *GatewayHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &GatewayHandler{
		service: service,
		pool:    pool,
		logger:  log,
		observe: observe,
		timeout: timeout,
	}
}

// Register subscribes to member joins and message creates.
func (h *GatewayHandler) Register(r HandlerRegistrar) {
	r.AddHandler(h.OnGuildMemberAdd)
	r.AddHandler(h.OnMessageCreate)
}

func (h *GatewayHandler) OnGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	payload, ok := MemberJoinedFrom(m)
	if !ok {
		return
	}
	h.dispatch(services.EventMemberJoined, payload)
}

func (h *GatewayHandler) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	payload, ok := MessageReceivedFrom(m)
	if !ok {
		return
	}
	h.dispatch(services.EventMessageReceived, payload)
}

func (h *GatewayHandler) dispatch(kind services.EventKind, payload any) {
	job := h.logger.WrapEvent(string(kind), h.observe, func(ctx context.Context) (string, error) {
		outcome, err := h.service.Handle(ctx, kind, payload)
		return string(outcome), err
	})

	err := h.pool.Submit(func() {
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		job(ctx)
	})
	if err != nil {
		h.logger.Warn("dropped gateway event", zap.String("event", string(kind)), zap.Error(err))
	}
}

// MemberJoinedFrom converts a member join; ok is false when the event
// carries no user.
func MemberJoinedFrom(m *discordgo.GuildMemberAdd) (services.MemberJoined, bool) {
	if m == nil || m.Member == nil || m.User == nil {
		return services.MemberJoined{}, false
	}
	return services.MemberJoined{
		GuildID: m.GuildID,
		User: services.User{
			UserID:     m.User.ID,
			Username:   m.User.Username,
			GlobalName: m.User.GlobalName,
			AvatarHash: m.User.Avatar,
			Bot:        m.User.Bot,
		},
	}, true
}

// MessageReceivedFrom converts a message create; ok is false when the event
// carries no author.
func MessageReceivedFrom(m *discordgo.MessageCreate) (services.MessageReceived, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return services.MessageReceived{}, false
	}
	return services.MessageReceived{
		AuthorID:     m.Author.ID,
		AuthorAvatar: m.Author.Avatar,
		AuthorBot:    m.Author.Bot,
		ChannelID:    m.ChannelID,
		GuildID:      m.GuildID,
		Content:      m.Content,
	}, true
}
