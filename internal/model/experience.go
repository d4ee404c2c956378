package model

import "time"

// WorkExperience は職務経歴の1エントリを表す。
// EndDateがnilの場合は現職を意味する。
type WorkExperience struct {
	ID          string
	Company     string
	Position    string
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	SortOrder   int
	IsActive    bool
}
