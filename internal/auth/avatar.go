package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxAvatarSize はプロフィール写真の最大サイズ（2MB）。
const maxAvatarSize = 2 * 1024 * 1024

// avatarTimeout はプロフィール写真取得のタイムアウト。
const avatarTimeout = 5 * time.Second

// FetchGuard は外部URL取得前の安全性検証インターフェース。
type FetchGuard interface {
	NewSafeClient(timeout time.Duration) *http.Client
	ValidateURL(rawURL string) error
}

// AvatarFetcherService はプロフィール写真取得のインターフェース。
type AvatarFetcherService interface {
	// FetchAvatar は指定URLからプロフィール写真を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	FetchAvatar(ctx context.Context, photoURL string) (data []byte, mimeType string, err error)
}

// AvatarFetcher はプロフィール写真取得機能の実装。
// ペイロード由来のURLへアクセスするためSSRF検証を必須とする。
type AvatarFetcher struct {
	guard FetchGuard
}

// NewAvatarFetcher はAvatarFetcherの新しいインスタンスを生成する。
func NewAvatarFetcher(guard FetchGuard) *AvatarFetcher {
	return &AvatarFetcher{guard: guard}
}

// FetchAvatar は指定URLからプロフィール写真を取得する。
// 取得失敗はログイン成功を妨げないため、失敗時はnilデータを返す。
func (f *AvatarFetcher) FetchAvatar(ctx context.Context, photoURL string) ([]byte, string, error) {
	if photoURL == "" {
		return nil, "", nil
	}

	if f.guard != nil {
		if err := f.guard.ValidateURL(photoURL); err != nil {
			slog.Warn("avatar取得: SSRFブロック", "url", photoURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.httpClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		slog.Warn("avatar取得: リクエスト作成失敗", "url", photoURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Folio/1.0 Portfolio Backend")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("avatar取得: HTTPリクエスト失敗", "url", photoURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("avatar取得: HTTPステータス異常", "url", photoURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarSize+1))
	if err != nil {
		slog.Warn("avatar取得: レスポンス読み取り失敗", "url", photoURL, "error", err)
		return nil, "", nil
	}

	if int64(len(body)) > maxAvatarSize {
		slog.Warn("avatar取得: サイズ超過", "url", photoURL, "size", len(body))
		return nil, "", nil
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		slog.Warn("avatar取得: 画像以外のContent-Type", "url", photoURL, "contentType", mimeType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// httpClient は取得に使用するHTTPクライアントを返す。
func (f *AvatarFetcher) httpClient() *http.Client {
	if f.guard != nil {
		return f.guard.NewSafeClient(avatarTimeout)
	}
	return &http.Client{Timeout: avatarTimeout}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// compile-time interface check
var _ AvatarFetcherService = (*AvatarFetcher)(nil)
