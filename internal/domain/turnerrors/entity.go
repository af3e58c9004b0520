package turnerrors

import "time"

// TurnError represents a persisted failed turn
type TurnError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SessionID   string    `json:"session_id"`
	Route       string    `json:"route,omitempty"` // panel | analysis
	Stage       string    `json:"stage,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
