package session

import "context"

// Store port (persistence untuk session state)
type Store interface {
	Get(ctx context.Context, tenant, id string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, tenant, id string) error
}
