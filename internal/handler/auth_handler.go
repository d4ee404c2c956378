// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/folio/internal/auth"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, payload map[string]any) (*model.TelegramUser, error)
}

// AuthMetrics は認証結果のメトリクス記録インターフェース。
type AuthMetrics interface {
	RecordTelegramAuth(result string)
}

// AuthHandler はTelegramログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil許容。
func NewAuthHandler(service AuthServiceInterface, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
	}
}

// Telegram はログインウィジェットのペイロードを検証し識別レコードを登録する。
// POST /api/auth/telegram
func (h *AuthHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.record("invalid")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidationFailed,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "JSONオブジェクトを送信してください。",
		})
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.record("success")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"user": map[string]any{
			"id":        user.TelegramID,
			"name":      user.FullName(),
			"username":  user.Username,
			"photo_url": user.PhotoURL,
		},
	})
}

// writeAuthError は検証エラーの種別をHTTPステータスへ変換する。
// 署名不一致のみ403で、鮮度・欠落は400。設定不足はクライアント起因
// ではないため503を返す。
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingSignature):
		h.record("missing")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingSignatureError())
	case errors.Is(err, auth.ErrStalePayload):
		h.record("stale")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewStalePayloadError())
	case errors.Is(err, auth.ErrInvalidSignature):
		h.record("invalid")
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewInvalidSignatureError())
	case errors.Is(err, auth.ErrProviderNotConfigured):
		h.record("not_configured")
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewProviderNotConfiguredError())
	default:
		h.record("error")
		slog.Error("telegram auth failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}

// record は結果メトリクスを記録する。
func (h *AuthHandler) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordTelegramAuth(result)
	}
}
