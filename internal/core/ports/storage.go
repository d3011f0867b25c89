package ports

import (
	"context"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// InvocationStore defines the interface for the invocation audit log.
type InvocationStore interface {
	// RecordInvocation appends one audit record.
	RecordInvocation(ctx context.Context, rec *domain.InvocationRecord) error

	// GetInvocation retrieves a record by ID.
	GetInvocation(ctx context.Context, id string) (*domain.InvocationRecord, error)

	// ListInvocations lists records, newest first.
	ListInvocations(ctx context.Context, opts InvocationListOptions) ([]*domain.InvocationRecord, error)

	// Close closes the storage connection
	Close() error
}

// InvocationListOptions defines options for listing invocations
type InvocationListOptions struct {
	Action string // Filter by action name
	Status int    // Filter by status code, 0 for any
	Limit  int
	Offset int
}
