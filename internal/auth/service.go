package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/repository"
)

// Service はTelegramログインに関するビジネスロジックを提供する。
// 署名検証に成功したペイロードを識別レコードとして永続化する。
type Service struct {
	verifier *Verifier
	userRepo repository.TelegramUserRepository
	avatars  AvatarFetcherService
	now      func() time.Time
}

// NewService はServiceを生成する。avatarsはnil許容で、
// nilの場合はプロフィール写真の取得をスキップする。
func NewService(verifier *Verifier, userRepo repository.TelegramUserRepository, avatars AvatarFetcherService) *Service {
	return &Service{
		verifier: verifier,
		userRepo: userRepo,
		avatars:  avatars,
		now:      time.Now,
	}
}

// Authenticate は署名検証済みのペイロードから識別レコードを作成または更新する。
// 同一telegram_idの再ログインは単一のUPSERTで表示名等を最新値に揃える。
// プロフィール写真の取得失敗はログイン成功を妨げない。
func (s *Service) Authenticate(ctx context.Context, payload map[string]any) (*model.TelegramUser, error) {
	if err := s.verifier.Verify(payload); err != nil {
		return nil, err
	}

	user := userFromPayload(payload)
	user.LastLoginAt = s.now()

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to persist telegram user: %w", err)
	}

	slog.Info("telegram user authenticated",
		slog.Int64("telegram_id", user.TelegramID),
		slog.String("username", user.Username),
	)

	s.refreshAvatar(ctx, user)

	return user, nil
}

// refreshAvatar はプロフィール写真を取得して保存する。失敗は無視する。
func (s *Service) refreshAvatar(ctx context.Context, user *model.TelegramUser) {
	if s.avatars == nil || user.PhotoURL == "" {
		return
	}

	data, mime, err := s.avatars.FetchAvatar(ctx, user.PhotoURL)
	if err != nil || data == nil {
		return
	}

	if err := s.userRepo.UpdateAvatar(ctx, user.TelegramID, data, mime); err != nil {
		slog.Warn("failed to store avatar",
			slog.Int64("telegram_id", user.TelegramID),
			slog.String("error", err.Error()),
		)
		return
	}

	user.AvatarData = data
	user.AvatarMime = mime
}

// userFromPayload は検証済みペイロードからTelegramUserを構築する。
func userFromPayload(payload map[string]any) *model.TelegramUser {
	user := &model.TelegramUser{
		FirstName: stringField(payload, "first_name"),
		LastName:  stringField(payload, "last_name"),
		Username:  stringField(payload, "username"),
		PhotoURL:  stringField(payload, "photo_url"),
	}

	if id, ok := numericField(payload, "id"); ok {
		user.TelegramID = id
	}
	if authDate, ok := extractAuthDate(payload); ok {
		user.AuthDate = authDate
	}

	return user
}

// stringField はペイロードから文字列フィールドを取り出す。
func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
