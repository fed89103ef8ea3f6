package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/core/ports"
)

type TagGrantsUseCase struct {
	repo       ports.GrantRepository
	classifier ports.GrantClassifier
	vocabulary *domain.Vocabulary
}

func NewTagGrantsUseCase(
	repo ports.GrantRepository,
	classifier ports.GrantClassifier,
	vocabulary *domain.Vocabulary,
) *TagGrantsUseCase {
	if vocabulary == nil {
		vocabulary = domain.DefaultVocabulary()
	}
	return &TagGrantsUseCase{
		repo:       repo,
		classifier: classifier,
		vocabulary: vocabulary,
	}
}

// TagOne validates a grant and returns a copy carrying the classifier's tags.
// It does not touch storage.
func (uc *TagGrantsUseCase) TagOne(ctx context.Context, grant domain.Grant) (domain.Grant, error) {
	return uc.tagAt(ctx, grant, -1)
}

// TagMany tags grants strictly in order and stores them with one InsertMany call.
// A single malformed grant fails the whole batch before anything is stored.
func (uc *TagGrantsUseCase) TagMany(ctx context.Context, grants []domain.Grant) ([]domain.Grant, error) {
	tagged := make([]domain.Grant, 0, len(grants))
	for idx, grant := range grants {
		out, err := uc.tagAt(ctx, grant, idx)
		if err != nil {
			return nil, err
		}
		tagged = append(tagged, out)
	}

	if len(tagged) == 0 {
		return tagged, nil
	}
	if err := uc.repo.InsertMany(ctx, tagged); err != nil {
		return nil, fmt.Errorf("insert tagged grants: %w", err)
	}

	slog.Info("grants_tagged", "count", len(tagged))
	return tagged, nil
}

// Submit tags a single grant and stores it, returning the grant with its assigned id.
func (uc *TagGrantsUseCase) Submit(ctx context.Context, grant domain.Grant) (domain.Grant, error) {
	tagged, err := uc.TagOne(ctx, grant)
	if err != nil {
		return domain.Grant{}, err
	}

	id, err := uc.repo.InsertOne(ctx, tagged)
	if err != nil {
		return domain.Grant{}, fmt.Errorf("insert tagged grant: %w", err)
	}
	tagged.ID = id

	slog.Info("grant_submitted", "grant_id", id, "grant_name", tagged.Name, "tags", tagged.Tags)
	return tagged, nil
}

func (uc *TagGrantsUseCase) tagAt(ctx context.Context, grant domain.Grant, idx int) (domain.Grant, error) {
	if missing := grant.MissingFields(); len(missing) > 0 {
		return domain.Grant{}, &domain.MalformedGrantError{Index: idx, Missing: missing}
	}

	tags := uc.classifier.Classify(ctx, grant.Name, grant.Description)

	// Identity and timestamps belong to the store, never to the caller.
	out := grant.Clone()
	out.ID = ""
	out.CreatedAt = time.Time{}
	out.Tags = uc.vocabulary.Filter(tags)
	return out, nil
}
