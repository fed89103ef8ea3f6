package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

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

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *GrantRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS grants (
	id TEXT PRIMARY KEY,
	grant_name TEXT NOT NULL,
	grant_description TEXT NOT NULL,
	website_urls JSONB NOT NULL DEFAULT '[]'::jsonb,
	document_urls JSONB NOT NULL DEFAULT '[]'::jsonb,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_grants_created_at ON grants(created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const insertGrantSQL = `
INSERT INTO grants (id, grant_name, grant_description, website_urls, document_urls, tags, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *GrantRepository) InsertOne(ctx context.Context, grant domain.Grant) (string, error) {
	id := uuid.NewString()
	if err := r.insert(ctx, r.db, id, grant, r.now()); err != nil {
		return "", err
	}
	return id, nil
}

// InsertMany stores the batch in one transaction: either every grant is stored or none.
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
		// TIMESTAMPTZ keeps microseconds; the offset keeps batch order under ORDER BY created_at.
		createdAt := now.Add(time.Duration(idx) * time.Microsecond)
		if err := r.insert(ctx, tx, uuid.NewString(), grant, createdAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

func (r *GrantRepository) insert(ctx context.Context, db execer, id string, grant domain.Grant, createdAt time.Time) error {
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
		id, grant.Name, grant.Description, websiteJSON, documentJSON, tagsJSON, createdAt,
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
		var websiteRaw, documentRaw, tagsRaw []byte
		if err := rows.Scan(
			&grant.ID, &grant.Name, &grant.Description,
			&websiteRaw, &documentRaw, &tagsRaw, &grant.CreatedAt,
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
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

func (r *GrantRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE id = $1`, id)
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
		return domain.WrapError(domain.ErrTemporary, "ping postgres", err)
	}
	return nil
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func unmarshalList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
