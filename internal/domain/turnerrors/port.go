package turnerrors

import (
	"context"
)

// Repository defines persistence for failed turns
type Repository interface {
	Save(ctx context.Context, e *TurnError) error
	ListBySession(ctx context.Context, tenant string, sessionID string, limit int) ([]*TurnError, error)
}
