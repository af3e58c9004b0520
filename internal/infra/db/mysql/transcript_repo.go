package mysql

import (
	"context"
	"database/sql"
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
INSERT IGNORE INTO roundtable_transcript
  (tenant_id, session_id, seq, role, content, created_at)
VALUES (?,?,?,?,?,?)
`
	res, err := r.db.ExecContext(ctx, q, stringOrDash(t.TenantID), t.SessionID, t.Seq, string(t.Role), t.Content, nowIfZero(t.CreatedAt))
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		t.ID = id
	}
	return nil
}

// Paginate returns turns in conversation order
func (r *TranscriptRepository) Paginate(ctx context.Context, tenant, sessionID string, page, pageSize int) ([]*conversation.ArchivedTurn, error) {
	limit, offset := pageOffset(page, pageSize)

	const q = `
SELECT id, tenant_id, session_id, seq, role, content, created_at
FROM roundtable_transcript
WHERE tenant_id=? AND session_id=?
ORDER BY seq ASC
LIMIT ? OFFSET ?;
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
