package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/folio/internal/contact"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// ContactServiceInterface は問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, input contact.SubmitInput) (*model.ContactMessage, error)
}

// ContactMetrics は問い合わせ結果のメトリクス記録インターフェース。
type ContactMetrics interface {
	RecordContactSubmission(result string)
}

// ContactHandler は問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
	metrics ContactMetrics
}

// NewContactHandler はContactHandlerを生成する。metricsはnil許容。
func NewContactHandler(service ContactServiceInterface, metrics ContactMetrics) *ContactHandler {
	return &ContactHandler{
		service: service,
		metrics: metrics,
	}
}

// contactRequest は問い合わせ送信のリクエストボディ。
type contactRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	Website        string `json:"website"` // おとりフィールド
	TelegramUserID *int64 `json:"telegram_user_id"`
}

// Send は問い合わせを受け付ける。
// POST /api/contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.record("rejected")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidationFailed,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "JSONオブジェクトを送信してください。",
		})
		return
	}

	source := model.MessageSourceSite
	if req.TelegramUserID != nil {
		source = model.MessageSourceTelegram
	}

	_, err := h.service.Submit(r.Context(), contact.SubmitInput{
		Name:           req.Name,
		Email:          req.Email,
		Subject:        req.Subject,
		Message:        req.Message,
		Website:        req.Website,
		Source:         source,
		TelegramUserID: req.TelegramUserID,
		IPAddress:      middleware.ClientIP(r),
	})
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.record("accepted")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "メッセージを受け付けました。折り返しご連絡します。",
	})
}

// writeSubmitError は受付エラーをHTTPステータスへ変換する。
// おとり検知はボットに悟られないよう、通常のバリデーション失敗と
// 同じ応答を返す。
func (h *ContactHandler) writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, contact.ErrHoneypotTripped) {
		h.record("honeypot")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(nil))
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeRateLimited:
			h.record("rate_limited")
			middleware.WriteErrorResponse(w, http.StatusTooManyRequests, apiErr)
		case model.ErrCodeValidationFailed:
			h.record("rejected")
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		default:
			h.record("error")
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		}
		return
	}

	h.record("error")
	slog.Error("contact submission failed", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// record は結果メトリクスを記録する。
func (h *ContactHandler) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordContactSubmission(result)
	}
}
