package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or updates an analysis run
func (r *AnalysisRepository) Save(ctx context.Context, a *analysis.Run) error {
	const q = `
INSERT INTO roundtable_analysis_runs
  (id, tenant_id, session_id, question, code, result_json, outcome, error, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  result_json=EXCLUDED.result_json,
  outcome=EXCLUDED.outcome,
  error=EXCLUDED.error,
  duration_ms=EXCLUDED.duration_ms;
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID,
		stringOrDash(a.TenantID),
		a.SessionID,
		a.Question,
		a.Code,
		jsonOrEmpty(a.ResultJSON),
		string(a.Outcome),
		a.Error,
		a.DurationMS,
		nowIfZero(a.CreatedAt),
	)
	return err
}

// Paginate returns a page of runs of one session, newest first
func (r *AnalysisRepository) Paginate(ctx context.Context, tenant, sessionID string, page, pageSize int) ([]*analysis.Run, error) {
	limit, offset := pageOffset(page, pageSize)

	const q = `
SELECT id, tenant_id, session_id, question, code, result_json, outcome, error, duration_ms, created_at
FROM roundtable_analysis_runs
WHERE tenant_id=$1 AND session_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*analysis.Run
	for rows.Next() {
		var a analysis.Run
		var outcome string
		var created time.Time
		if err := rows.Scan(&a.ID, &a.TenantID, &a.SessionID, &a.Question, &a.Code, &a.ResultJSON, &outcome, &a.Error, &a.DurationMS, &created); err != nil {
			return nil, err
		}
		a.Outcome = analysis.Outcome(outcome)
		a.CreatedAt = created
		out = append(out, &a)
	}
	return out, rows.Err()
}
