package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/folio/internal/model"
)

// Notifier は問い合わせ通知チャネルのインターフェース。
type Notifier interface {
	// Notify は新着問い合わせを通知する。
	Notify(ctx context.Context, msg *model.ContactMessage) error
}

// Fanout は複数チャネルへ順に通知する。個々の失敗はログに残すだけで
// 後続チャネルの送信は継続する。
type Fanout struct {
	channels []Notifier
}

// NewFanout はFanoutを生成する。nilチャネルは無視される。
func NewFanout(channels ...Notifier) *Fanout {
	kept := make([]Notifier, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Fanout{channels: kept}
}

// Notify は全チャネルへ送信する。常にnilを返す。
func (f *Fanout) Notify(ctx context.Context, msg *model.ContactMessage) error {
	for _, c := range f.channels {
		if err := c.Notify(ctx, msg); err != nil {
			slog.Warn("contact notification failed",
				slog.String("channel", fmt.Sprintf("%T", c)),
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// compile-time interface check
var _ Notifier = (*Fanout)(nil)
