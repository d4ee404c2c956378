package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresContactRepo はPostgreSQLを使用した問い合わせメッセージリポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

const contactColumns = `id, name, email, subject, message, status, source, telegram_user_id, ip_address, created_at, replied_at`

// Create は新しい問い合わせメッセージを保存する。
func (r *PostgresContactRepo) Create(ctx context.Context, msg *model.ContactMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, subject, message, status, source, telegram_user_id, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.Name, msg.Email, msg.Subject, msg.Message,
		msg.Status, msg.Source, msg.TelegramUserID, msg.IPAddress, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact message: %w", err)
	}

	return nil
}

// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contact_messages WHERE id = $1`, id)

	msg, err := scanContactMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// List は問い合わせメッセージを新しい順で返す。
// statusが空でない場合はそのステータスのみに絞り込む。
func (r *PostgresContactRepo) List(ctx context.Context, status model.MessageStatus, limit int) ([]*model.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*model.ContactMessage, 0)
	for rows.Next() {
		msg, err := scanContactMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contact messages: %w", err)
	}

	return messages, nil
}

// UpdateStatus はメッセージのステータスを更新する。repliedステータスへの遷移時は
// replied_atも記録する。
func (r *PostgresContactRepo) UpdateStatus(ctx context.Context, id string, status model.MessageStatus, repliedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contact_messages SET status = $2, replied_at = COALESCE($3, replied_at) WHERE id = $1`,
		id, status, repliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact message status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// scanContactMessage は1行をContactMessageにスキャンする。
func scanContactMessage(row rowScanner) (*model.ContactMessage, error) {
	msg := &model.ContactMessage{}
	var telegramUserID sql.NullInt64
	var repliedAt sql.NullTime

	err := row.Scan(
		&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Message,
		&msg.Status, &msg.Source, &telegramUserID, &msg.IPAddress,
		&msg.CreatedAt, &repliedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contact message: %w", err)
	}

	if telegramUserID.Valid {
		msg.TelegramUserID = &telegramUserID.Int64
	}
	if repliedAt.Valid {
		msg.RepliedAt = &repliedAt.Time
	}

	return msg, nil
}

// compile-time interface check
var _ ContactMessageRepository = (*PostgresContactRepo)(nil)
