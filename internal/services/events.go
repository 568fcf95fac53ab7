package services

// EventKind identifies an inbound gateway event.
type EventKind string

const (
	EventMemberJoined    EventKind = "MEMBER_JOINED"
	EventMessageReceived EventKind = "MESSAGE_RECEIVED"
)

// Outcome labels how an event was handled. Outcomes are used as metric labels.
type Outcome string

const (
	OutcomeWelcomed     Outcome = "welcomed"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeInvalidEmail Outcome = "invalid_email"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeTicketSent   Outcome = "ticket_sent"
	OutcomeFailed       Outcome = "failed"
)

// User is the identity carried by a member join.
type User struct {
	UserID     string
	Username   string
	GlobalName string
	AvatarHash string
	Bot        bool
}

// DisplayName prefers the global display name over the username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// MemberJoined is the payload of EventMemberJoined.
type MemberJoined struct {
	GuildID string
	User    User
}

// MessageReceived is the payload of EventMessageReceived.
type MessageReceived struct {
	AuthorID     string
	AuthorAvatar string
	AuthorBot    bool
	ChannelID    string
	GuildID      string
	Content      string
}

// IsDirect reports whether the message was sent outside a guild.
func (m MessageReceived) IsDirect() bool {
	return m.GuildID == ""
}
