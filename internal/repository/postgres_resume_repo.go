package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresResumeRepo はPostgreSQLを使用したCVファイルリポジトリ。
type PostgresResumeRepo struct {
	db *sql.DB
}

// NewPostgresResumeRepo はPostgresResumeRepoを生成する。
func NewPostgresResumeRepo(db *sql.DB) *PostgresResumeRepo {
	return &PostgresResumeRepo{db: db}
}

// FindActive は公開中のCVのうち最も新しいものを返す。見つからない場合はnilを返す。
func (r *PostgresResumeRepo) FindActive(ctx context.Context) (*model.ResumeFile, error) {
	cv := &model.ResumeFile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, file_name, data, mime, is_active, updated_at
		 FROM resume_files
		 WHERE is_active = TRUE
		 ORDER BY updated_at DESC
		 LIMIT 1`,
	).Scan(&cv.ID, &cv.FileName, &cv.Data, &cv.Mime, &cv.IsActive, &cv.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active resume: %w", err)
	}

	return cv, nil
}

// compile-time interface check
var _ ResumeRepository = (*PostgresResumeRepo)(nil)
