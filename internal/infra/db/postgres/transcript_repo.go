package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
)

type TranscriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Append archives one ledger turn. Re-archiving the same seq is a no-op.
func (r *TranscriptRepository) Append(ctx context.Context, t *conversation.ArchivedTurn) error {
	const q = `
INSERT INTO roundtable_transcript
  (tenant_id, session_id, seq, role, content, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, session_id, seq) DO NOTHING
RETURNING id;
`
	err := r.db.QueryRowContext(ctx, q, stringOrDash(t.TenantID), t.SessionID, t.Seq, string(t.Role), t.Content, nowIfZero(t.CreatedAt)).Scan(&t.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// Paginate returns turns in conversation order
func (r *TranscriptRepository) Paginate(ctx context.Context, tenant, sessionID string, page, pageSize int) ([]*conversation.ArchivedTurn, error) {
	limit, offset := pageOffset(page, pageSize)

	const q = `
SELECT id, tenant_id, session_id, seq, role, content, created_at
FROM roundtable_transcript
WHERE tenant_id=$1 AND session_id=$2
ORDER BY seq ASC
LIMIT $3 OFFSET $4;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*conversation.ArchivedTurn{}
	for rows.Next() {
		var t conversation.ArchivedTurn
		var role string
		var created time.Time
		if err := rows.Scan(&t.ID, &t.TenantID, &t.SessionID, &t.Seq, &role, &t.Content, &created); err != nil {
			return nil, err
		}
		t.Role = conversation.Role(role)
		t.CreatedAt = created
		out = append(out, &t)
	}
	return out, rows.Err()
}
