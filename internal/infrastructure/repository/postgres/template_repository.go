package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

type TemplateRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db, now: time.Now}
}

func (r *TemplateRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/mcp startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS prompt_templates (
	name TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TemplateRepository) GetTemplate(ctx context.Context, name string) (*domain.PromptTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, content
FROM prompt_templates
WHERE name = $1
`, name)

	var tpl domain.PromptTemplate
	if err := row.Scan(&tpl.Name, &tpl.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", fmt.Errorf("name=%s", name))
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return &tpl, nil
}

// SaveTemplate inserts or replaces the named template.
func (r *TemplateRepository) SaveTemplate(ctx context.Context, tpl domain.PromptTemplate) error {
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO prompt_templates (name, content, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
`, tpl.Name, tpl.Content, now)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}
