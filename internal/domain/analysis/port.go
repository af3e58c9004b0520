package analysis

import "context"

// Executor runs a snippet inside an isolated interpreter and returns its
// JSON-decoded result. Interpreter exceptions come back as *ExecError.
type Executor interface {
	Execute(ctx context.Context, code string, data any, execCtx map[string]any) (any, error)
}

// Repository port for persisting analysis runs
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Paginate(ctx context.Context, tenant, sessionID string, page, pageSize int) ([]*Run, error)
}
