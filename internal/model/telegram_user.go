// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// TelegramUser はTelegram Login Widget経由で認証した訪問者を表す。
// TelegramIDはプロバイダー発行の不変かつ一意なキーであり、
// レコードは署名検証成功時のアップサートでのみ作成・更新される。
type TelegramUser struct {
	TelegramID  int64
	FirstName   string
	LastName    string
	Username    string
	PhotoURL    string
	AvatarData  []byte // 取得済みプロフィール写真（取得失敗時はnil）
	AvatarMime  string
	AuthDate    time.Time // Telegramが発行した認可時刻（auto nowにしないこと）
	LastLoginAt time.Time
	CreatedAt   time.Time
}

// FullName は姓名を結合した表示名を返す。
func (u *TelegramUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
