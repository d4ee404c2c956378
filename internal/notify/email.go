package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hitoshi/folio/internal/model"
)

// EmailConfig はSMTP中継の設定。
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	To       string
}

// sendMailFunc はsmtp.SendMail互換のシグネチャ。テストで差し替える。
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier はSMTP経由で管理者メールアドレスへ通知する。
type EmailNotifier struct {
	config   EmailConfig
	sendMail sendMailFunc
}

// NewEmailNotifier はEmailNotifierを生成する。
func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// Notify は新着問い合わせをメールで送信する。
func (n *EmailNotifier) Notify(_ context.Context, msg *model.ContactMessage) error {
	if n.config.Host == "" || n.config.To == "" {
		return fmt.Errorf("email notifier is not configured")
	}

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	body := buildMailBody(n.config.Username, n.config.To, msg)

	if err := n.sendMail(addr, auth, n.config.Username, []string{n.config.To}, body); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	slog.Info("contact notification sent",
		slog.String("channel", "email"),
		slog.String("message_id", msg.ID),
	)

	return nil
}

// buildMailBody はRFC 5322形式のメール本文を組み立てる。
func buildMailBody(from, to string, msg *model.ContactMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: [contact] %s\r\n", headerValue(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "名前: %s\r\n", msg.Name)
	if msg.Email != "" {
		fmt.Fprintf(&b, "メール: %s\r\n", msg.Email)
	}
	b.WriteString("\r\n")
	b.WriteString(msg.Message)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// headerValue はヘッダー値に差し込む文字列の改行を空白へ置き換える。
// 利用者入力の件名からのヘッダーインジェクションを防ぐ。
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// compile-time interface check
var _ Notifier = (*EmailNotifier)(nil)
