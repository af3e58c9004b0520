package conversation

import "context"

// ArchivedTurn is a ledger turn as stored in the transcript archive.
type ArchivedTurn struct {
	ID        int64  `json:"id"`
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
	Seq       int    `json:"seq"`
	Turn
}

// TranscriptRepository archives ledger turns for auditing and retrieval.
type TranscriptRepository interface {
	Append(ctx context.Context, t *ArchivedTurn) error
	Paginate(ctx context.Context, tenant, sessionID string, page, pageSize int) ([]*ArchivedTurn, error)
}
