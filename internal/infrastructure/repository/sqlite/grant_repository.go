// Package sqlite stores grants in a local SQLite file. It backs development setups
// and the grantctl seeding command.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

type GrantRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewGrantRepository(db *sql.DB) *GrantRepository {
	return &GrantRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// OpenDB opens path, creating its directory. ":memory:" is accepted for tests.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *GrantRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS grants (
	id TEXT PRIMARY KEY,
	grant_name TEXT NOT NULL,
	grant_description TEXT NOT NULL,
	website_urls TEXT NOT NULL DEFAULT '[]',
	document_urls TEXT NOT NULL DEFAULT '[]',
	tags TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grants_created_at ON grants(created_at);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

const insertGrantSQL = `
INSERT INTO grants (id, grant_name, grant_description, website_urls, document_urls, tags, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *GrantRepository) InsertOne(ctx context.Context, grant domain.Grant) (string, error) {
	id := uuid.NewString()
	if err := insert(ctx, r.db, id, grant, r.now()); err != nil {
		return "", err
	}
	return id, nil
}

func (r *GrantRepository) InsertMany(ctx context.Context, grants []domain.Grant) error {
	if len(grants) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := r.now()
	for idx, grant := range grants {
		// Offset keeps insertion order stable under ORDER BY created_at.
		if err := insert(ctx, tx, uuid.NewString(), grant, now.Add(time.Duration(idx))); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

func insert(ctx context.Context, db execer, id string, grant domain.Grant, createdAt time.Time) error {
	websiteJSON, err := marshalList(grant.WebsiteURLs)
	if err != nil {
		return fmt.Errorf("marshal website urls: %w", err)
	}
	documentJSON, err := marshalList(grant.DocumentURLs)
	if err != nil {
		return fmt.Errorf("marshal document urls: %w", err)
	}
	tagsJSON, err := marshalList(grant.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.ExecContext(ctx, insertGrantSQL,
		id, grant.Name, grant.Description, websiteJSON, documentJSON, tagsJSON, createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

func (r *GrantRepository) FindAll(ctx context.Context) ([]domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, grant_name, grant_description, website_urls, document_urls, tags, created_at
FROM grants
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	grants := make([]domain.Grant, 0)
	for rows.Next() {
		var grant domain.Grant
		var websiteRaw, documentRaw, tagsRaw string
		var createdAt int64
		if err := rows.Scan(
			&grant.ID, &grant.Name, &grant.Description,
			&websiteRaw, &documentRaw, &tagsRaw, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		if grant.WebsiteURLs, err = unmarshalList(websiteRaw); err != nil {
			return nil, fmt.Errorf("unmarshal website urls: %w", err)
		}
		if grant.DocumentURLs, err = unmarshalList(documentRaw); err != nil {
			return nil, fmt.Errorf("unmarshal document urls: %w", err)
		}
		if grant.Tags, err = unmarshalList(tagsRaw); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		grant.CreatedAt = time.Unix(0, createdAt).UTC()
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

func (r *GrantRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete grant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete grant rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *GrantRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count grants: %w", err)
	}
	return count, nil
}

func (r *GrantRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.WrapError(domain.ErrTemporary, "ping sqlite", err)
	}
	return nil
}

func marshalList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
