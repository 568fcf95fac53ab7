package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/services"
)

type fakeREST struct {
	channelFor string
	sentTo     string
	sent       *discordgo.MessageSend
	options    int
	err        error
}

func (f *fakeREST) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.channelFor = recipientID
	f.options = len(options)
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeREST) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sentTo = channelID
	f.sent = data
	f.options = len(options)
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func TestNewSession(t *testing.T) {
	s, err := NewSession(config.DiscordConfig{Token: "abc"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Bot abc", s.session.Token)
	assert.Equal(t, Intents, s.session.Identify.Intents)
	assert.True(t, s.session.SyncEvents)

	_, err = NewSession(config.DiscordConfig{}, nil)
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}

func TestSession_CreateDMChannel(t *testing.T) {
	rest := &fakeREST{}
	s := &Session{rest: rest}

	id, err := s.CreateDMChannel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "dm-u1", id)
	assert.Equal(t, "u1", rest.channelFor)
	assert.Equal(t, 1, rest.options, "request is bound to the context")

	rest.err = errors.New("403")
	_, err = s.CreateDMChannel(context.Background(), "u1")
	assert.Error(t, err)
}

func TestSession_SendMessage(t *testing.T) {
	rest := &fakeREST{}
	s := &Session{rest: rest}

	err := s.SendMessage(context.Background(), "dm-u1", services.OutboundMessage{
		Content:     "Hey Ada!",
		ImageURL:    "https://img.example/promo.png",
		ImageWidth:  500,
		ImageHeight: 700,
	})
	require.NoError(t, err)

	assert.Equal(t, "dm-u1", rest.sentTo)
	assert.Equal(t, "Hey Ada!", rest.sent.Content)
	require.Len(t, rest.sent.Embeds, 1)
	assert.Equal(t, &discordgo.MessageEmbedImage{URL: "https://img.example/promo.png", Width: 500, Height: 700}, rest.sent.Embeds[0].Image)

	rest.err = errors.New("rate limited")
	assert.Error(t, s.SendMessage(context.Background(), "dm-u1", services.OutboundMessage{Content: "x"}))
}

func TestBuildMessageSend(t *testing.T) {
	data, err := BuildMessageSend(services.OutboundMessage{Content: "plain"})
	require.NoError(t, err)
	assert.Empty(t, data.Embeds)

	_, err = BuildMessageSend(services.OutboundMessage{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
