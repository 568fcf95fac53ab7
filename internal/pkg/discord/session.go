package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/services"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

// Intents are the gateway intents the bot subscribes to: member joins and
// direct messages.
const Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMembers

// ErrEmptyMessage is returned when a message has neither content nor image.
var ErrEmptyMessage = errors.New("message has no content")

// restClient is the subset of the Discord REST API the bot calls.
type restClient interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Session owns the gateway connection and implements services.Messenger.
type Session struct {
	session *discordgo.Session
	rest    restClient
	logger  *logger.Logger
}

// NewSession prepares a bot session; Open connects it to the gateway.
func NewSession(cfg config.DiscordConfig, log *logger.Logger) (*Session, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: discord token", config.ErrMissingConfig)
	}
	if log == nil {
		log = logger.NewNop()
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	// Handlers only enqueue work, so they run inline on the gateway goroutine.
	dg.SyncEvents = true
	dg.ShouldReconnectOnError = true
	dg.StateEnabled = false

	s := &Session{session: dg, rest: dg, logger: log}
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info("discord gateway ready",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)),
		)
	})
	dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		log.Warn("discord gateway disconnected")
	})
	return s, nil
}

// AddHandler registers a discordgo event handler and returns its remover.
func (s *Session) AddHandler(handler any) func() {
	return s.session.AddHandler(handler)
}

func (s *Session) Open() error {
	if err := s.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	return s.session.Close()
}

// CreateDMChannel opens (or returns the existing) DM channel with userID.
func (s *Session) CreateDMChannel(ctx context.Context, userID string) (string, error) {
	ch, err := s.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create DM channel: %w", err)
	}
	return ch.ID, nil
}

// SendMessage posts msg to channelID.
func (s *Session) SendMessage(ctx context.Context, channelID string, msg services.OutboundMessage) error {
	data, err := BuildMessageSend(msg)
	if err != nil {
		return err
	}
	if _, err := s.rest.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// BuildMessageSend converts msg into a Discord message; an image becomes an embed.
func BuildMessageSend(msg services.OutboundMessage) (*discordgo.MessageSend, error) {
	if msg.Content == "" && msg.ImageURL == "" {
		return nil, ErrEmptyMessage
	}
	data := &discordgo.MessageSend{Content: msg.Content}
	if msg.ImageURL != "" {
		data.Embeds = []*discordgo.MessageEmbed{{
			Image: &discordgo.MessageEmbedImage{
				URL:    msg.ImageURL,
				Width:  msg.ImageWidth,
				Height: msg.ImageHeight,
			},
		}}
	}
	return data, nil
}
