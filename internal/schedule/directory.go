package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrProviderNotFound = errors.New("provider not found")

// Directory exposes the provider and exception data owned by administrative
// workflows. The booking engine only reads through it.
type Directory interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	// ListBookableProviders returns active, non-deleted providers ordered by id.
	ListBookableProviders(ctx context.Context) ([]Provider, error)
	ExceptionsOn(ctx context.Context, date time.Time) (ExceptionRegistry, error)
}
