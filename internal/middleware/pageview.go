package middleware

import (
	"net/http"
	"strings"
)

// PageViewRecorder はページビューを記録する関数。
// ハンドラー処理の前にインラインで呼ばれるため、実装は書き込みを
// 切り離して即座に返すこと。
type PageViewRecorder func(r *http.Request, ip string)

// NewPageViewMiddleware はサイトページの閲覧を記録するミドルウェアを返す。
// 記録対象はAPI・ヘルスチェック・静的アセット以外へのGETリクエストのみ。
func NewPageViewMiddleware(record PageViewRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldRecordView(r) {
				record(r, ClientIP(r))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// shouldRecordView はリクエストをページビューとして数えるかを判定する。
func shouldRecordView(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}

	path := r.URL.Path
	for _, prefix := range []string{"/api/", "/health", "/metrics", "/static/", "/favicon.ico"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	return true
}
