package model

import "time"

// ProjectStatus はプロジェクトの進行状態を表す。
type ProjectStatus string

const (
	// ProjectStatusActive は進行中のプロジェクト。
	ProjectStatusActive ProjectStatus = "active"
	// ProjectStatusDone は完了したプロジェクト。
	ProjectStatusDone ProjectStatus = "done"
	// ProjectStatusPlanned は計画中のプロジェクト。
	ProjectStatusPlanned ProjectStatus = "planned"
)

// Display はステータスの表示名を返す。
func (s ProjectStatus) Display() string {
	switch s {
	case ProjectStatusActive:
		return "進行中"
	case ProjectStatusDone:
		return "完了"
	case ProjectStatusPlanned:
		return "計画中"
	default:
		return string(s)
	}
}

// Project はポートフォリオに掲載するプロジェクトを表す。
type Project struct {
	ID               string
	Title            string
	Slug             string
	ShortDescription string
	Description      string
	Stack            []string // 使用技術。JSONB配列として保存する
	Status           ProjectStatus
	GitHubURL        string
	DemoURL          string
	IsFeatured       bool
	SortOrder        int
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
