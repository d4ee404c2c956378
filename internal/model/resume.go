package model

import "time"

// ResumeFile はダウンロード用の履歴書（CV）ファイルを表す。
// ファイル本体はバイト列としてDBに保存する。
type ResumeFile struct {
	ID        string
	FileName  string
	Data      []byte
	Mime      string
	IsActive  bool
	UpdatedAt time.Time
}
