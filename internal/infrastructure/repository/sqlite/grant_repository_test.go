package sqlite

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

func newTestRepo(t *testing.T) *GrantRepository {
	t.Helper()
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewGrantRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo
}

func TestInsertManyThenFindAllKeepsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	batch := []domain.Grant{
		{Name: "Farmers Drought Relief Fund", Description: "water", WebsiteURLs: []string{"https://maine.gov"}, Tags: []string{"water", "climate"}},
		{Name: "AFID Infrastructure Program", Description: "infra", DocumentURLs: []string{"https://vdacs.gov/a.pdf"}, Tags: []string{}},
	}
	if err := repo.InsertMany(ctx, batch); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}

	got, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	want := []domain.Grant{
		{Name: "Farmers Drought Relief Fund", Description: "water", WebsiteURLs: []string{"https://maine.gov"}, DocumentURLs: []string{}, Tags: []string{"water", "climate"}},
		{Name: "AFID Infrastructure Program", Description: "infra", WebsiteURLs: []string{}, DocumentURLs: []string{"https://vdacs.gov/a.pdf"}, Tags: []string{}},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.Grant{}, "ID", "CreatedAt")); diff != "" {
		t.Fatalf("unexpected grants (-want +got):\n%s", diff)
	}
	for _, grant := range got {
		if grant.ID == "" || grant.CreatedAt.IsZero() {
			t.Fatalf("expected id and created_at to be assigned: %+v", grant)
		}
	}
}

func TestInsertOneDeleteAndCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertOne(ctx, domain.Grant{Name: "Equine Welfare Assistance", Description: "equine"})
	if err != nil {
		t.Fatalf("InsertOne() error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Count() = %d, %v; want 1", count, err)
	}

	found, err := repo.DeleteByID(ctx, id)
	if err != nil || !found {
		t.Fatalf("DeleteByID(%q) = %v, %v; want true", id, found, err)
	}
	found, err = repo.DeleteByID(ctx, id)
	if err != nil || found {
		t.Fatalf("second DeleteByID(%q) = %v, %v; want false", id, found, err)
	}

	count, err = repo.Count(ctx)
	if err != nil || count != 0 {
		t.Fatalf("Count() = %d, %v; want 0", count, err)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
