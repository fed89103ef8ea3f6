package ports

import (
	"context"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

// GrantTagger is the inbound contract for grant tagging orchestration.
type GrantTagger interface {
	TagOne(ctx context.Context, grant domain.Grant) (domain.Grant, error)
	TagMany(ctx context.Context, grants []domain.Grant) ([]domain.Grant, error)
	Submit(ctx context.Context, grant domain.Grant) (domain.Grant, error)
}

// GrantCatalog is the inbound read/delete model for stored grants.
type GrantCatalog interface {
	FindAll(ctx context.Context) ([]domain.Grant, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}
