package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prime-labs/express-bot/internal/models"
	"github.com/prime-labs/express-bot/internal/repositories"
)

type fakeStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
	writes  int
	findErr error
}

func newFakeStore(tickets ...*models.Ticket) *fakeStore {
	s := &fakeStore{tickets: make(map[string]*models.Ticket)}
	for _, t := range tickets {
		s.tickets[t.DiscordUserID] = t
	}
	return s
}

func (s *fakeStore) FindByDiscordUserID(_ context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	t, ok := s.tickets[id]
	if !ok {
		return nil, repositories.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) Create(_ context.Context, t *models.Ticket) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if existing, ok := s.tickets[t.DiscordUserID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *t
	s.tickets[t.DiscordUserID] = &cp
	return t, nil
}

func (s *fakeStore) UpdateSubmission(_ context.Context, id, email, link string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	t, ok := s.tickets[id]
	if !ok {
		return nil, repositories.ErrTicketNotFound
	}
	t.EmailAddress = email
	t.TicketLink = link
	if t.Status != models.StatusNotified {
		t.Status = models.StatusTicketReady
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status models.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	t, ok := s.tickets[id]
	if !ok {
		return repositories.ErrTicketNotFound
	}
	t.Status = status
	return nil
}

func (s *fakeStore) get(id string) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type sentMessage struct {
	ChannelID string
	Message   OutboundMessage
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	dmCreated []string
	dmErr     error
	sendErr   error
}

func (m *fakeMessenger) CreateDMChannel(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmErr != nil {
		return "", m.dmErr
	}
	m.dmCreated = append(m.dmCreated, userID)
	return "dm-" + userID, nil
}

func (m *fakeMessenger) SendMessage(_ context.Context, channelID string, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type fakeRenderer struct {
	mu    sync.Mutex
	cards []TicketCard
	err   error
}

func (r *fakeRenderer) RenderTicket(_ context.Context, card TicketCard) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = append(r.cards, card)
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("https://img.example/%s-%d", card.UserID, len(r.cards)), nil
}

func (r *fakeRenderer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cards)
}

type fakeMailer struct {
	mu    sync.Mutex
	mails []TicketMail
	err   error
}

func (m *fakeMailer) SendTicket(_ context.Context, mail TicketMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.mails = append(m.mails, mail)
	return nil
}

func (m *fakeMailer) sent() []TicketMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TicketMail(nil), m.mails...)
}

type fakeNumberer struct{ next string }

func (n fakeNumberer) NextTicketNumber(context.Context) (string, error) {
	if n.next == "" {
		return "", errors.New("sequence unavailable")
	}
	return n.next, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.TicketEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event models.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) types() []models.TicketEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.TicketEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (l fakeLimiter) Allow(context.Context, string) (bool, error) {
	return l.allowed, l.err
}
