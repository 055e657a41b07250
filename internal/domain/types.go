package domain

import "time"

type SessionID string
type UserID string

// ConversationHandle identifies a stateful conversation held by a ModelGateway.
type ConversationHandle string

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// DateLayout is the layout of every date exchanged with clients and stored in entries (YYYY-MM-DD).
const DateLayout = "2006-01-02"

type Timestamp = time.Time

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
