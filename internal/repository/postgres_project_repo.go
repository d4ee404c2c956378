package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, title, slug, short_description, description, stack, status,
	github_url, demo_url, is_featured, sort_order, is_active, created_at, updated_at`

// ListActive は公開中のプロジェクトをsort_order、作成日降順で返す。
func (r *PostgresProjectRepo) ListActive(ctx context.Context) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE is_active = TRUE
		 ORDER BY sort_order, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// FindActiveByID は公開中のプロジェクトをIDで取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindActiveByID(ctx context.Context, id string) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE id = $1 AND is_active = TRUE`,
		id,
	)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProject は1行をProjectにスキャンする。stackはJSONB配列からデコードする。
func scanProject(row rowScanner) (*model.Project, error) {
	p := &model.Project{}
	var stackJSON []byte

	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.ShortDescription, &p.Description,
		&stackJSON, &p.Status, &p.GitHubURL, &p.DemoURL,
		&p.IsFeatured, &p.SortOrder, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	if len(stackJSON) > 0 {
		if err := json.Unmarshal(stackJSON, &p.Stack); err != nil {
			return nil, fmt.Errorf("failed to decode project stack: %w", err)
		}
	}
	if p.Stack == nil {
		p.Stack = []string{}
	}

	return p, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
