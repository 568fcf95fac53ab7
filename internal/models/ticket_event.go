package models

import "time"

// TicketEventType names a ticket lifecycle transition published to the event bus.
type TicketEventType string

const (
	TicketCreated  TicketEventType = "ticket.created"
	TicketRendered TicketEventType = "ticket.rendered"
	TicketMailed   TicketEventType = "ticket.mailed"
)

// TicketEvent is the payload published for every lifecycle transition.
type TicketEvent struct {
	Type          TicketEventType `json:"type"`
	DiscordUserID string          `json:"discord_user_id"`
	TicketNumber  string          `json:"ticket_number"`
	TicketLink    string          `json:"ticket_link,omitempty"`
	Status        TicketStatus    `json:"status"`
	TraceID       string          `json:"trace_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewTicketEvent snapshots t for an event of the given type.
func NewTicketEvent(eventType TicketEventType, t *Ticket) TicketEvent {
	return TicketEvent{
		Type:          eventType,
		DiscordUserID: t.DiscordUserID,
		TicketNumber:  t.TicketNumber,
		TicketLink:    t.TicketLink,
		Status:        t.Status,
		OccurredAt:    time.Now().UTC(),
	}
}
