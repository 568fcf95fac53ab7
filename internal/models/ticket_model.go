package models

import (
	"time"
)

// TicketStatus is the issuance progress of a ticket. A user without a
// ticket row is implicitly "new".
type TicketStatus string

const (
	StatusJoined         TicketStatus = "joined"          // record created, welcome DM sent
	StatusEmailSubmitted TicketStatus = "email_submitted" // valid email parsed
	StatusTicketReady    TicketStatus = "ticket_ready"    // image rendered and cached
	StatusNotified       TicketStatus = "notified"        // mail sent, channel acknowledged
)

var statusRank = map[TicketStatus]int{
	StatusJoined:         1,
	StatusEmailSubmitted: 2,
	StatusTicketReady:    3,
	StatusNotified:       4,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Reached reports whether s is at or past other.
func (s TicketStatus) Reached(other TicketStatus) bool {
	return statusRank[s] >= statusRank[other]
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle
// monotonic. Staying in the same state is allowed: resubmitting an email
// re-sends the mail without regressing the ticket.
func (s TicketStatus) CanAdvanceTo(next TicketStatus) bool {
	if !next.Valid() {
		return false
	}
	return statusRank[next] >= statusRank[s]
}

// Ticket is the per-user launch party ticket, unique on DiscordUserID.
type Ticket struct {
	ID uint `gorm:"primaryKey" json:"id"`

	TicketNumber       string       `gorm:"not null" json:"ticket_number"`
	TicketLink         string       `json:"ticket_link,omitempty"`
	EmailAddress       string       `json:"email_address,omitempty"`
	Name               string       `json:"name"`
	Username           string       `json:"username"`
	DiscordUserID      string       `gorm:"uniqueIndex;not null" json:"discord_user_id"`
	DiscordDMChannelID string       `gorm:"column:discord_dm_channel_id" json:"discord_dm_channel_id"`
	Status             TicketStatus `gorm:"type:varchar(32);not null;default:joined" json:"status"`
	IsPresent          bool         `json:"is_present"`

	CreatedAt time.Time `gorm:"autoCreateTime;<-:create" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// DisplayName is the name shown on the ticket and in mail, falling back to
// the username when the display name snapshot is empty.
func (t *Ticket) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Username
}

// NeedsRender reports whether a ticket image still has to be generated.
// A stored link is a cache and is never regenerated.
func (t *Ticket) NeedsRender() bool {
	return t.TicketLink == ""
}

// Advance moves the ticket to next if the transition is allowed.
func (t *Ticket) Advance(next TicketStatus) bool {
	if !t.Status.CanAdvanceTo(next) {
		return false
	}
	t.Status = next
	return true
}
