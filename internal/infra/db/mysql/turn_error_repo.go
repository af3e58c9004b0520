package mysql

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
VALUES (?,?,?,?,?,?,?)
`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.TenantID),
		stringOrDash(e.SessionID),
		stringOrDash(e.Route),
		stringOrDash(e.Stage),
		msg,
		jsonOrEmpty(e.DetailsJSON),
		nowIfZero(e.CreatedAt),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *TurnErrorRepository) ListBySession(ctx context.Context, tenant string, sessionID string, limit int) ([]*turnerrors.TurnError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, session_id, route, stage, message, details_json, created_at
FROM roundtable_turn_errors
WHERE tenant_id = ? AND session_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
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
