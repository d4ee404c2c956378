package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/hitoshi/folio/internal/model"
)

// adminKeyHeader は管理APIの認証ヘッダー名。
const adminKeyHeader = "X-Admin-Key"

// NewAdminKeyMiddleware はX-Admin-Keyヘッダーによる管理API認証ミドルウェアを返す。
// キー未設定のデプロイでは管理APIを完全に閉じる。
// 比較はタイミング攻撃を避けるため定数時間で行う。
func NewAdminKeyMiddleware(adminKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Code:     model.ErrCodeForbidden,
					Message:  "管理APIは無効化されています。",
					Category: "auth",
					Action:   "サーバーにADMIN_API_KEYを設定してください。",
				})
				return
			}

			provided := r.Header.Get(adminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     model.ErrCodeUnauthorized,
					Message:  "管理キーが正しくありません。",
					Category: "auth",
					Action:   "X-Admin-Keyヘッダーを確認してください。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
