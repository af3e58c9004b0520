package session

import (
	"errors"
	"time"

	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
	"github.com/bryanwahyu/roundtable/internal/domain/documents"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

var ErrNotFound = errors.New("session not found")

// Status is the loading indicator of a session.
type Status struct {
	Loading bool      `json:"loading"`
	Stage   string    `json:"stage,omitempty"`
	Error   string    `json:"error,omitempty"`
	Updated time.Time `json:"updated_at"`
}

// State is everything one session owns. The orchestrator is its only writer.
type State struct {
	ID        string               `json:"id"`
	TenantID  string               `json:"tenant_id"`
	Ledger    *conversation.Ledger `json:"ledger"`
	Panel     *panel.Panel         `json:"panel,omitempty"`
	Documents documents.Store      `json:"documents"`
	Status    Status               `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func New(id, tenant string, now time.Time) *State {
	return &State{
		ID:        id,
		TenantID:  tenant,
		Ledger:    &conversation.Ledger{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ResetPanel drops the current panel; used when a new topic starts.
func (s *State) ResetPanel() { s.Panel = nil }

func (s *State) Begin(stage string, now time.Time) {
	s.Status = Status{Loading: true, Stage: stage, Updated: now}
}

func (s *State) Stage(stage string, now time.Time) {
	s.Status.Stage = stage
	s.Status.Updated = now
}

// End clears the loading indicator; err may be nil.
func (s *State) End(err error, now time.Time) {
	s.Status.Loading = false
	s.Status.Stage = ""
	s.Status.Error = ""
	if err != nil {
		s.Status.Error = err.Error()
	}
	s.Status.Updated = now
}
