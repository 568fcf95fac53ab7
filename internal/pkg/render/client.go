package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/pkg/httpclient"
	"github.com/prime-labs/express-bot/internal/services"
)

// ErrNoImageURL is returned when the rendering API answers without an image URL.
var ErrNoImageURL = errors.New("rendering API returned no image url")

//go:embed ticket.html
var ticketHTML string

var ticketTemplate = template.Must(template.New("ticket").Parse(ticketHTML))

// ticketView is the data the ticket template is executed with.
type ticketView struct {
	Headline       string
	Tagline        string
	DateLabel      string
	Location       string
	WebsiteURL     string
	BackgroundURL  string
	BrandLogoURL   string
	PartnerLogoURL string
	AvatarURL      string
	Name           string
	Username       string
	Code           string
}

type imageRequest struct {
	HTML           string `json:"html"`
	CSS            string `json:"css"`
	GoogleFonts    string `json:"google_fonts,omitempty"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
}

type imageResponse struct {
	URL string `json:"url"`
}

// Client renders ticket cards through an HTML to image API.
type Client struct {
	http     *httpclient.Client
	endpoint string
	auth     string
	cfg      config.RenderConfig
	event    config.EventConfig
}

func NewClient(cfg config.RenderConfig, event config.EventConfig, http *httpclient.Client) *Client {
	if http == nil {
		http = httpclient.New()
	}
	return &Client{
		http:     http,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/v1/image",
		auth:     "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.APIKey)),
		cfg:      cfg,
		event:    event,
	}
}

// RenderTicket renders card and returns the hosted image URL.
func (c *Client) RenderTicket(ctx context.Context, card services.TicketCard) (string, error) {
	html, err := c.TicketHTML(card)
	if err != nil {
		return "", err
	}

	var resp imageResponse
	err = c.http.PostJSON(ctx, c.endpoint, map[string]string{"Authorization": c.auth}, imageRequest{
		HTML:           html,
		GoogleFonts:    c.cfg.GoogleFonts,
		ViewportWidth:  c.cfg.ViewportWidth,
		ViewportHeight: c.cfg.ViewportHeight,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to render ticket: %w", err)
	}
	if resp.URL == "" {
		return "", ErrNoImageURL
	}
	return resp.URL, nil
}

// TicketHTML returns the HTML document for card.
func (c *Client) TicketHTML(card services.TicketCard) (string, error) {
	view := ticketView{
		Headline:       c.event.Headline,
		Tagline:        c.event.Tagline,
		DateLabel:      c.event.DateLabel,
		Location:       c.event.Location,
		WebsiteURL:     c.event.WebsiteURL,
		BackgroundURL:  c.event.TicketBackgroundURL,
		BrandLogoURL:   c.event.BrandLogoURL,
		PartnerLogoURL: c.event.PartnerLogoURL,
		AvatarURL:      c.AvatarURL(card.UserID, card.AvatarHash),
		Name:           card.Name,
		Username:       card.Username,
		Code:           TicketCode(c.event.TicketPrefix, card.TicketNumber),
	}

	var buf bytes.Buffer
	if err := ticketTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to build ticket html: %w", err)
	}
	return buf.String(), nil
}

// AvatarURL returns the CDN avatar of a user, or the fallback image when the
// user has no avatar.
func (c *Client) AvatarURL(userID, avatarHash string) string {
	if avatarHash == "" || userID == "" {
		return c.event.FallbackAvatarURL
	}
	return discordgo.EndpointUserAvatar(userID, avatarHash)
}

// TicketCode formats the printed ticket code, e.g. "#2701-42".
func TicketCode(prefix, number string) string {
	if prefix == "" {
		return "#" + number
	}
	return "#" + prefix + "-" + number
}
