package model

import "time"

// SkillCategory はスキルの分類を表す。
type SkillCategory string

const (
	// SkillCategoryBackend はバックエンド関連スキル。
	SkillCategoryBackend SkillCategory = "backend"
	// SkillCategoryDatabase はデータベース関連スキル。
	SkillCategoryDatabase SkillCategory = "database"
	// SkillCategoryTools はツール関連スキル。
	SkillCategoryTools SkillCategory = "tools"
	// SkillCategoryOther はその他のスキル。
	SkillCategoryOther SkillCategory = "other"
)

// Skill はポートフォリオに表示する技術スキルを表す。
// (Name, Category)の組は一意。
type Skill struct {
	ID        string
	Name      string
	Icon      string
	Percent   int // 習熟度 0〜100
	Category  SkillCategory
	SortOrder int
	IsActive  bool
	UpdatedAt time.Time
}
