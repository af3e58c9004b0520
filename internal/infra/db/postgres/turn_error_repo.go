package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bryanwahyu/roundtable/internal/domain/turnerrors"
)

type TurnErrorRepository struct {
	db *sql.DB
}

func NewTurnErrorRepository(db *sql.DB) *TurnErrorRepository { return &TurnErrorRepository{db: db} }

func (r *TurnErrorRepository) Save(ctx context.Context, e *turnerrors.TurnError) error {
	const q = `
INSERT INTO roundtable_turn_errors
  (tenant_id, session_id, route, stage, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;
`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(e.TenantID),
		stringOrDash(e.SessionID),
		stringOrDash(e.Route),
		stringOrDash(e.Stage),
		msg,
		jsonOrEmpty(e.DetailsJSON),
		nowIfZero(e.CreatedAt),
	).Scan(&e.ID)
}

func (r *TurnErrorRepository) ListBySession(ctx context.Context, tenant string, sessionID string, limit int) ([]*turnerrors.TurnError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, session_id, route, stage, message, details_json, created_at
FROM roundtable_turn_errors
WHERE tenant_id = $1 AND session_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*turnerrors.TurnError
	for rows.Next() {
		var e turnerrors.TurnError
		var created time.Time
		if err := rows.Scan(&e.ID, &e.TenantID, &e.SessionID, &e.Route, &e.Stage, &e.Message, &e.DetailsJSON, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = created
		out = append(out, &e)
	}
	return out, rows.Err()
}
