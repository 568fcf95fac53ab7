package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/pkg/httpclient"
	"github.com/prime-labs/express-bot/internal/services"
)

// ErrNoRecipient is returned when a ticket mail has no address.
var ErrNoRecipient = errors.New("mail has no recipient address")

type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type CalendarEvent struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	URL       string    `json:"url,omitempty"`
	Organizer string    `json:"organizer,omitempty"`
}

type Template struct {
	ID        string            `json:"id"`
	Variables map[string]string `json:"variables,omitempty"`
}

// SendRequest is the body of a transactional send.
type SendRequest struct {
	Sender        Address        `json:"sender"`
	Recipients    Address        `json:"recipients"`
	Subject       string         `json:"subject"`
	CalendarEvent *CalendarEvent `json:"calendarEvent,omitempty"`
	Template      *Template      `json:"template,omitempty"`
	Attachments   []string       `json:"attachments,omitempty"`
}

// Client sends ticket mails through a transactional mail API.
type Client struct {
	http     *httpclient.Client
	endpoint string
	secret   string
	event    config.EventConfig
	start    time.Time
	end      time.Time
}

// NewClient fails when the event window in cfg cannot be parsed.
func NewClient(cfg config.MailConfig, event config.EventConfig, http *httpclient.Client) (*Client, error) {
	start, end, err := event.Window()
	if err != nil {
		return nil, err
	}
	if http == nil {
		http = httpclient.New()
	}
	return &Client{
		http:     http,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/send",
		secret:   cfg.ProjectSecret,
		event:    event,
		start:    start,
		end:      end,
	}, nil
}

// SendTicket mails the ticket image with the event calendar invite.
func (c *Client) SendTicket(ctx context.Context, m services.TicketMail) error {
	req, err := c.BuildRequest(m)
	if err != nil {
		return err
	}
	headers := map[string]string{"Authorization": "Bearer " + c.secret}
	if err := c.http.PostJSON(ctx, c.endpoint, headers, req, nil); err != nil {
		return fmt.Errorf("failed to send ticket mail: %w", err)
	}
	return nil
}

// BuildRequest composes the send request for m.
func (c *Client) BuildRequest(m services.TicketMail) (*SendRequest, error) {
	if m.Email == "" {
		return nil, ErrNoRecipient
	}
	name := m.Name
	if name == "" {
		name = m.Username
	}

	attachments := make([]string, 0, 2)
	if m.TicketLink != "" {
		attachments = append(attachments, m.TicketLink+".png")
	}
	if c.event.PromoImageURL != "" {
		attachments = append(attachments, c.event.PromoImageURL)
	}

	req := &SendRequest{
		Sender:     Address{Name: c.event.SenderName, Email: c.event.SenderEmail},
		Recipients: Address{Name: name, Email: m.Email},
		Subject:    c.event.Subject,
		CalendarEvent: &CalendarEvent{
			StartDate: c.start,
			EndDate:   c.end,
			Title:     c.event.Title,
			Location:  c.event.Location,
			URL:       c.event.MapURL,
			Organizer: c.event.Organizer,
		},
		Attachments: attachments,
	}
	if c.event.TemplateID != "" {
		req.Template = &Template{ID: c.event.TemplateID, Variables: map[string]string{"username": name}}
	}
	return req, nil
}
