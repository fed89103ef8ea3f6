package ports

import (
	"context"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

// GrantRepository persists grants. Identity is assigned by the implementation.
type GrantRepository interface {
	InsertOne(ctx context.Context, grant domain.Grant) (string, error)
	InsertMany(ctx context.Context, grants []domain.Grant) error
	FindAll(ctx context.Context) ([]domain.Grant, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// GrantClassifier infers tags for a grant. Failures degrade to an empty slice,
// so the method has no error return.
type GrantClassifier interface {
	Classify(ctx context.Context, name, description string) []string
}

// ImportQueue carries grant batches to the asynchronous tagging worker.
type ImportQueue interface {
	PublishGrantImport(ctx context.Context, grants []domain.Grant) error
	SubscribeGrantImports(ctx context.Context, handler func(context.Context, []domain.Grant) error) error
}
