package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresExperienceRepo はPostgreSQLを使用した職務経歴リポジトリ。
type PostgresExperienceRepo struct {
	db *sql.DB
}

// NewPostgresExperienceRepo はPostgresExperienceRepoを生成する。
func NewPostgresExperienceRepo(db *sql.DB) *PostgresExperienceRepo {
	return &PostgresExperienceRepo{db: db}
}

// ListActive は公開中の職務経歴をsort_order、開始日降順で返す。
func (r *PostgresExperienceRepo) ListActive(ctx context.Context) ([]*model.WorkExperience, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, company, position, description, start_date, end_date, sort_order, is_active
		 FROM work_experiences
		 WHERE is_active = TRUE
		 ORDER BY sort_order, start_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list work experiences: %w", err)
	}
	defer rows.Close()

	items := make([]*model.WorkExperience, 0)
	for rows.Next() {
		e := &model.WorkExperience{}
		var endDate sql.NullTime
		if err := rows.Scan(&e.ID, &e.Company, &e.Position, &e.Description, &e.StartDate, &endDate, &e.SortOrder, &e.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan work experience: %w", err)
		}
		if endDate.Valid {
			e.EndDate = &endDate.Time
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate work experiences: %w", err)
	}

	return items, nil
}

// compile-time interface check
var _ ExperienceRepository = (*PostgresExperienceRepo)(nil)
