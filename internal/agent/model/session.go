package model

import "time"

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one visible transcript entry. Internal tool round-trips are not
// recorded here; only what the user said and what the assistant answered.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds all per-conversation state. Values are plain data so the
// whole session can be marshalled into Redis as one JSON document.
type Session struct {
	ID         string        `json:"id"`
	Turns      []Turn        `json:"turns"`
	Cart       Cart          `json:"cart"`
	City       *City         `json:"city,omitempty"`
	Coordinate *Coordinate   `json:"coordinate,omitempty"`
	Recipient  Recipient     `json:"recipient,omitempty"`
	Occasion   Occasion      `json:"occasion,omitempty"`
	Budget     *BudgetRange  `json:"budget,omitempty"`
	Address    string        `json:"address,omitempty"`
	Date       string        `json:"date,omitempty"`
	Customer   *CustomerInfo `json:"customer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session must be treated as gone at the given
// instant, regardless of whether the sweep has removed it yet.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AppendTurn records a transcript entry and returns the session for chaining.
func (s *Session) AppendTurn(role Role, text string, at time.Time) *Session {
	s.Turns = append(s.Turns, Turn{Role: role, Text: text, Timestamp: at})
	return s
}

// CustomerInfo carries contact details captured during the dialogue for the
// ordering flow downstream.
type CustomerInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}
