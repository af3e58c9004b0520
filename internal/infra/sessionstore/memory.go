// Package sessionstore persists session state. Both stores hand out copies,
// so a turn working on a loaded state never touches the stored one.
package sessionstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bryanwahyu/roundtable/internal/domain/session"
)

type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func key(tenant, id string) string { return tenant + ":" + id }

func (m *Memory) Get(_ context.Context, tenant, id string) (*session.State, error) {
	m.mu.RLock()
	b, ok := m.data[key(tenant, id)]
	m.mu.RUnlock()
	if !ok {
		return nil, session.ErrNotFound
	}
	return decode(b)
}

func (m *Memory) Save(_ context.Context, s *session.State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key(s.TenantID, s.ID)] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key(tenant, id)]; !ok {
		return session.ErrNotFound
	}
	delete(m.data, key(tenant, id))
	return nil
}

func decode(b []byte) (*session.State, error) {
	var s session.State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
