// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/folio/internal/model"
)

// TelegramUserRepository はTelegram識別レコードの永続化インターフェース。
type TelegramUserRepository interface {
	// Upsert はtelegram_idをキーに識別レコードを作成または更新する。
	// 2つの検証が同時に走っても重複が生じないよう、
	// fetch-then-branchではなく単一のINSERT ... ON CONFLICT文で実行する。
	Upsert(ctx context.Context, user *model.TelegramUser) error

	// FindByTelegramID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.TelegramUser, error)

	// UpdateAvatar は取得済みプロフィール写真を保存する。
	// アバター取得はベストエフォートであり、本体のアップサートとは独立して呼ばれる。
	UpdateAvatar(ctx context.Context, telegramID int64, data []byte, mime string) error
}

// SkillRepository はスキルデータの永続化インターフェース。
type SkillRepository interface {
	// ListActive は公開中のスキルをsort_order順で返す。
	ListActive(ctx context.Context) ([]*model.Skill, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// ListActive は公開中のプロジェクトをsort_order、作成日降順で返す。
	ListActive(ctx context.Context) ([]*model.Project, error)

	// FindActiveByID は公開中のプロジェクトをIDで取得する。見つからない場合はnilを返す。
	FindActiveByID(ctx context.Context, id string) (*model.Project, error)
}

// ExperienceRepository は職務経歴データの永続化インターフェース。
type ExperienceRepository interface {
	// ListActive は公開中の職務経歴をsort_order、開始日降順で返す。
	ListActive(ctx context.Context) ([]*model.WorkExperience, error)
}

// ResumeRepository はCVファイルの永続化インターフェース。
type ResumeRepository interface {
	// FindActive は公開中のCVのうち最も新しいものを返す。見つからない場合はnilを返す。
	FindActive(ctx context.Context) (*model.ResumeFile, error)
}

// ContactMessageRepository はコンタクトメッセージの永続化インターフェース。
// メッセージは作成後に削除されない。更新はステータス遷移のみ。
type ContactMessageRepository interface {
	// Create はメッセージを作成する。
	Create(ctx context.Context, msg *model.ContactMessage) error

	// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ContactMessage, error)

	// List はメッセージを作成日降順で返す。statusが空でない場合は絞り込む。
	List(ctx context.Context, status model.MessageStatus, limit int) ([]*model.ContactMessage, error)

	// UpdateStatus はメッセージのステータスを更新する。
	// repliedAtはstatusがrepliedの場合にのみ設定する。
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus, repliedAt *time.Time) error
}

// PageViewRepository はページビューカウンターの永続化インターフェース。
type PageViewRepository interface {
	// RecordView は指定日のカウンターを加算し、訪問者ハッシュを記録する。
	// どちらもアップサートで冪等・競合安全に行う。
	RecordView(ctx context.Context, date time.Time, visitorHash string) error

	// CountByDate は指定日のビュー数を返す。レコードがない場合は0を返す。
	CountByDate(ctx context.Context, date time.Time) (int, error)

	// DailyCounts はendまでのdays日分の日別ビュー数を古い順で返す。
	// レコードのない日は0件として埋める。
	DailyCounts(ctx context.Context, end time.Time, days int) ([]model.DailyViews, error)

	// TotalViews は全期間の合計ビュー数を返す。
	TotalViews(ctx context.Context) (int, error)

	// UniqueVisitors は全期間のユニーク訪問者数を返す。
	UniqueVisitors(ctx context.Context) (int, error)

	// PruneVisitorsBefore はcutoffより古い訪問者ハッシュを削除し、削除件数を返す。
	PruneVisitorsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
