package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role enum
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable ledger entry.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger is the append-only conversation history of a session.
// The zero value is ready to use.
type Ledger struct {
	turns []Turn
}

// NewLedger rebuilds a ledger from persisted turns.
func NewLedger(turns []Turn) *Ledger {
	l := &Ledger{}
	l.turns = append(l.turns, turns...)
	return l
}

// Append adds a turn at the end of the ledger.
func (l *Ledger) Append(role Role, content string, at time.Time) Turn {
	t := Turn{Role: role, Content: content, CreatedAt: at}
	l.turns = append(l.turns, t)
	return t
}

// Turns returns a copy so callers cannot rewrite history.
func (l *Ledger) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Ledger) Len() int { return len(l.turns) }

// LastUserQuestion returns the most recent user turn content, if any.
func (l *Ledger) LastUserQuestion() (string, bool) {
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Role == RoleUser {
			return l.turns[i].Content, true
		}
	}
	return "", false
}

// Context renders the ledger as "ROLE: content" blocks separated by a blank line.
func (l *Ledger) Context() string {
	parts := make([]string, 0, len(l.turns))
	for _, t := range l.turns {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(string(t.Role)), t.Content))
	}
	return strings.Join(parts, "\n\n")
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	if l.turns == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.turns)
}

func (l *Ledger) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &l.turns)
}
