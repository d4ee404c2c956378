package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresTelegramUserRepo はPostgreSQLを使用したTelegram識別レコードリポジトリ。
type PostgresTelegramUserRepo struct {
	db *sql.DB
}

// NewPostgresTelegramUserRepo はPostgresTelegramUserRepoを生成する。
func NewPostgresTelegramUserRepo(db *sql.DB) *PostgresTelegramUserRepo {
	return &PostgresTelegramUserRepo{db: db}
}

// Upsert はtelegram_idをキーに識別レコードを作成または更新する。
// 同一IDの再検証では既存レコードの表示名等を最新値で上書きする。
func (r *PostgresTelegramUserRepo) Upsert(ctx context.Context, user *model.TelegramUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO telegram_users (telegram_id, first_name, last_name, username, photo_url, auth_date, last_login_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (telegram_id) DO UPDATE SET
		   first_name = EXCLUDED.first_name,
		   last_name = EXCLUDED.last_name,
		   username = EXCLUDED.username,
		   photo_url = EXCLUDED.photo_url,
		   auth_date = EXCLUDED.auth_date,
		   last_login_at = EXCLUDED.last_login_at`,
		user.TelegramID, user.FirstName, user.LastName, user.Username,
		user.PhotoURL, user.AuthDate, user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert telegram user: %w", err)
	}

	return nil
}

// FindByTelegramID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresTelegramUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*model.TelegramUser, error) {
	user := &model.TelegramUser{}
	var authDate, lastLoginAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT telegram_id, first_name, last_name, username, photo_url, avatar_data, avatar_mime, auth_date, last_login_at, created_at
		 FROM telegram_users WHERE telegram_id = $1`,
		telegramID,
	).Scan(
		&user.TelegramID, &user.FirstName, &user.LastName, &user.Username,
		&user.PhotoURL, &user.AvatarData, &user.AvatarMime,
		&authDate, &lastLoginAt, &user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find telegram user: %w", err)
	}

	if authDate.Valid {
		user.AuthDate = authDate.Time
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = lastLoginAt.Time
	}

	return user, nil
}

// UpdateAvatar は取得済みプロフィール写真を保存する。
func (r *PostgresTelegramUserRepo) UpdateAvatar(ctx context.Context, telegramID int64, data []byte, mime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE telegram_users SET avatar_data = $2, avatar_mime = $3 WHERE telegram_id = $1`,
		telegramID, data, mime,
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}

	return nil
}

// compile-time interface check
var _ TelegramUserRepository = (*PostgresTelegramUserRepo)(nil)
