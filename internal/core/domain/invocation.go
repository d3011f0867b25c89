package domain

import (
	"encoding/json"
	"time"
)

// InvocationRecord is the audit entry written once per completed invocation.
type InvocationRecord struct {
	ID         string          `json:"id" db:"id"`
	RequestID  string          `json:"request_id" db:"request_id"`
	Action     string          `json:"action" db:"action"`
	Method     string          `json:"method" db:"method"`
	Path       string          `json:"path" db:"path"`
	Status     int             `json:"status" db:"status"`
	Valid      bool            `json:"valid" db:"valid"`
	DurationNs int64           `json:"duration_ns" db:"duration_ns"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
