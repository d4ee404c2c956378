package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresSkillRepo はPostgreSQLを使用したスキルリポジトリ。
type PostgresSkillRepo struct {
	db *sql.DB
}

// NewPostgresSkillRepo はPostgresSkillRepoを生成する。
func NewPostgresSkillRepo(db *sql.DB) *PostgresSkillRepo {
	return &PostgresSkillRepo{db: db}
}

// ListActive は公開中のスキルをsort_order順で返す。
func (r *PostgresSkillRepo) ListActive(ctx context.Context) ([]*model.Skill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, percent, category, sort_order, is_active, updated_at
		 FROM skills
		 WHERE is_active = TRUE
		 ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	skills := make([]*model.Skill, 0)
	for rows.Next() {
		s := &model.Skill{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Icon, &s.Percent, &s.Category, &s.SortOrder, &s.IsActive, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}

	return skills, nil
}

// compile-time interface check
var _ SkillRepository = (*PostgresSkillRepo)(nil)
