// Package notify は問い合わせ受信時の管理者通知を提供する。
// 通知はベストエフォートで、失敗しても問い合わせの受理は成立する。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/folio/internal/model"
)

// telegramAPIBase はBot APIのベースURL。テストで差し替える。
const telegramAPIBase = "https://api.telegram.org"

// sendTimeout は通知送信のタイムアウト。
const sendTimeout = 5 * time.Second

// TelegramNotifier はBot APIのsendMessageで管理者チャットへ通知する。
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	baseURL  string
}

// NewTelegramNotifier はTelegramNotifierを生成する。
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: sendTimeout},
		baseURL:  telegramAPIBase,
	}
}

// Notify は新着問い合わせを管理者チャットへ送信する。
func (n *TelegramNotifier) Notify(ctx context.Context, msg *model.ContactMessage) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier is not configured")
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    n.chatID,
		"text":       formatMessage(msg),
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}

	slog.Info("contact notification sent",
		slog.String("channel", "telegram"),
		slog.String("message_id", msg.ID),
	)

	return nil
}

// formatMessage は通知本文を組み立てる。
// parse_mode=HTMLで送るため、利用者入力はエスケープする。
func formatMessage(msg *model.ContactMessage) string {
	var b strings.Builder
	b.WriteString("📬 <b>新しい問い合わせ</b>\n\n")
	fmt.Fprintf(&b, "名前: %s\n", html.EscapeString(msg.Name))
	if msg.Email != "" {
		fmt.Fprintf(&b, "メール: %s\n", html.EscapeString(msg.Email))
	}
	fmt.Fprintf(&b, "件名: %s\n\n", html.EscapeString(msg.Subject))
	b.WriteString(html.EscapeString(msg.Message))
	return b.String()
}

// compile-time interface check
var _ Notifier = (*TelegramNotifier)(nil)
