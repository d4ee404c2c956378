// Package contact は問い合わせフォームの受付パイプラインを提供する。
package contact

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/folio/internal/guard"
	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/notify"
	"github.com/hitoshi/folio/internal/repository"
)

// ErrHoneypotTripped は不可視フィールドに値が入っていたことを表す。
// ボット判定であることを応答から悟られないよう、呼び出し側は
// 通常のバリデーションエラーと同じ応答を返す。
var ErrHoneypotTripped = errors.New("honeypot field was filled")

// minMessageLength は本文の最小文字数。
const minMessageLength = 5

// notifyTimeout は切り離した通知ゴルーチンの制限時間。
const notifyTimeout = 10 * time.Second

// TextSanitizer は保存前のプレーンテキスト化インターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// SubmitInput は問い合わせ送信の入力。
type SubmitInput struct {
	Name    string
	Email   string
	Subject string
	Message string
	// Website は不可視のおとりフィールド。人間のフォーム入力では常に空。
	Website        string
	Source         model.MessageSource
	TelegramUserID *int64
	IPAddress      string
}

// Service は問い合わせ受付のビジネスロジックを提供する。
// 受付手順: おとり判定 → 送信制限 → バリデーション → 保存 → 通知。
type Service struct {
	repo      repository.ContactMessageRepository
	users     repository.TelegramUserRepository
	guard     *guard.Guard
	sanitizer TextSanitizer
	notifier  notify.Notifier
	now       func() time.Time
}

// NewService はServiceを生成する。notifierはnil許容で、
// nilの場合は通知をスキップする。usersもnil許容で、
// nilの場合はTelegram識別リンクを付けずに保存する。
func NewService(
	repo repository.ContactMessageRepository,
	users repository.TelegramUserRepository,
	g *guard.Guard,
	sanitizer TextSanitizer,
	notifier notify.Notifier,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		guard:     g,
		sanitizer: sanitizer,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Submit は問い合わせを受け付ける。
// 通知の失敗は受理を妨げない。保存に成功した時点で成功として扱う。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*model.ContactMessage, error) {
	// 1. おとりフィールド判定。制限カウントを消費させないため最初に行う。
	if strings.TrimSpace(input.Website) != "" {
		slog.Info("honeypot tripped", slog.String("ip", input.IPAddress))
		return nil, ErrHoneypotTripped
	}

	// 2. 送信元ごとの送信制限
	if s.guard != nil {
		key := input.IPAddress
		if key == "" {
			// 送信元不明のリクエストは共有バケットで数える
			key = "unknown"
		}
		allowed, _, err := s.guard.Allow(ctx, key)
		if err != nil {
			// 制限ストアの障害でフォームを止めない
			slog.Warn("abuse guard unavailable", slog.String("error", err.Error()))
		} else if !allowed {
			return nil, model.NewRateLimitedError()
		}
	}

	// 3. サニタイズとバリデーション
	msg := s.buildMessage(input)
	if fields := validate(msg); len(fields) > 0 {
		return nil, model.NewValidationFailedError(fields)
	}

	// 4. Telegram識別リンクの確認と保存。
	// 実在しないIDのまま保存すると外部キー違反で正当な送信まで
	// 失敗するため、確認できないリンクは外してサイト送信に降格する。
	s.resolveTelegramLink(ctx, msg)

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	slog.Info("contact message received",
		slog.String("message_id", msg.ID),
		slog.String("source", string(msg.Source)),
	)

	// 5. 通知（ベストエフォート）。レスポンスをブロックしないよう
	// リクエストから切り離したコンテキストで非同期に送る。
	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		go func() {
			defer cancel()
			s.notifier.Notify(notifyCtx, msg)
		}()
	}

	return msg, nil
}

// buildMessage は入力をサニタイズしてContactMessageを構築する。
func (s *Service) buildMessage(input SubmitInput) *model.ContactMessage {
	source := input.Source
	if source == "" {
		source = model.MessageSourceSite
	}

	return &model.ContactMessage{
		ID:             uuid.New().String(),
		Name:           s.clean(input.Name),
		Email:          s.clean(input.Email),
		Subject:        s.clean(input.Subject),
		Message:        s.clean(input.Message),
		Status:         model.MessageStatusNew,
		Source:         source,
		TelegramUserID: input.TelegramUserID,
		IPAddress:      input.IPAddress,
		CreatedAt:      s.now(),
	}
}

// resolveTelegramLink は申告されたTelegram識別IDの実在を確認する。
// 登録済みならsourceをtelegramに、未知のID・参照不能なら
// リンクなしのサイト送信として扱う。
func (s *Service) resolveTelegramLink(ctx context.Context, msg *model.ContactMessage) {
	if msg.TelegramUserID == nil {
		return
	}

	var user *model.TelegramUser
	if s.users != nil {
		var err error
		user, err = s.users.FindByTelegramID(ctx, *msg.TelegramUserID)
		if err != nil {
			slog.Warn("failed to look up telegram user",
				slog.Int64("telegram_id", *msg.TelegramUserID),
				slog.String("error", err.Error()),
			)
			user = nil
		}
	}

	if user == nil {
		msg.TelegramUserID = nil
		msg.Source = model.MessageSourceSite
		return
	}

	msg.Source = model.MessageSourceTelegram
}

// clean はサニタイザ設定済みならプレーンテキスト化する。
func (s *Service) clean(raw string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(raw)
	}
	return s.sanitizer.SanitizeText(raw)
}

// validate はフィールド単位のバリデーションエラーを返す。
// メールアドレスは任意項目で、指定時のみ形式を確認する。
func validate(msg *model.ContactMessage) map[string][]string {
	fields := make(map[string][]string)

	if msg.Name == "" {
		fields["name"] = append(fields["name"], "名前は必須です。")
	}
	if msg.Subject == "" {
		fields["subject"] = append(fields["subject"], "件名は必須です。")
	}
	if len([]rune(msg.Message)) < minMessageLength {
		fields["message"] = append(fields["message"], "本文は5文字以上で入力してください。")
	}
	if msg.Email != "" && !looksLikeEmail(msg.Email) {
		fields["email"] = append(fields["email"], "メールアドレスの形式が正しくありません。")
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// looksLikeEmail は大まかなメールアドレス形式チェックを行う。
func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t\n")
}
