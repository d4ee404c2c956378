package model

import "time"

// MessageStatus はコンタクトメッセージのライフサイクル状態を表す。
// 遷移は new → read → replied の一方向のみ。
type MessageStatus string

const (
	// MessageStatusNew は未読のメッセージ。
	MessageStatusNew MessageStatus = "new"
	// MessageStatusRead は既読のメッセージ。
	MessageStatusRead MessageStatus = "read"
	// MessageStatusReplied は返信済みのメッセージ。
	MessageStatusReplied MessageStatus = "replied"
)

// CanTransitionTo は現在の状態からnextへの遷移が許可されているかを返す。
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	switch s {
	case MessageStatusNew:
		return next == MessageStatusRead || next == MessageStatusReplied
	case MessageStatusRead:
		return next == MessageStatusReplied
	default:
		return false
	}
}

// MessageSource はメッセージの送信経路を表す。
type MessageSource string

const (
	// MessageSourceSite はサイトのフォームからの送信。
	MessageSourceSite MessageSource = "site"
	// MessageSourceTelegram はTelegramログイン済み訪問者からの送信。
	MessageSourceTelegram MessageSource = "telegram"
	// MessageSourceOther はその他の経路。
	MessageSourceOther MessageSource = "other"
)

// ContactMessage はコンタクトフォームから送信されたメッセージを表す。
// 作成後は不変であり、ステータス遷移（とreplied_at）のみが更新される。
// バリデーションとアビューズガードを通過した場合にのみ永続化される。
type ContactMessage struct {
	ID             string
	TelegramUserID *int64 // 検証済みTelegramユーザーとの任意の紐付け
	Source         MessageSource
	Name           string
	Email          string // Telegramログイン済みの場合は空を許可
	Subject        string
	Message        string
	Status         MessageStatus
	RepliedAt      *time.Time
	IPAddress      string
	CreatedAt      time.Time
}
