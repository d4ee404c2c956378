package model

import "time"

// PageView は1日分のページビューカウンターを表す。
// ユニーク訪問者はIPのハッシュとして別テーブルに保持する。
type PageView struct {
	Date  time.Time // 日単位（UTC）
	Count int
}

// DailyViews は統計レスポンス用の日別ビュー数を表す。
type DailyViews struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Views int    `json:"views"`
}

// StatsSummary はページビュー統計のサマリーを表す。
type StatsSummary struct {
	TotalViews     int          `json:"total_views"`
	UniqueVisitors int          `json:"unique_visitors"`
	TodayViews     int          `json:"today_views"`
	Last7Days      []DailyViews `json:"last_7_days"`
}
