package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// defaultMessageLimit は一覧取得のデフォルト件数。
const defaultMessageLimit = 50

// AdminMessageRepoInterface は管理ハンドラーが必要とするリポジトリインターフェース。
type AdminMessageRepoInterface interface {
	FindByID(ctx context.Context, id string) (*model.ContactMessage, error)
	List(ctx context.Context, status model.MessageStatus, limit int) ([]*model.ContactMessage, error)
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus, repliedAt *time.Time) error
}

// AdminHandler は問い合わせメッセージ管理のHTTPハンドラー。
// ルーティング側でX-Admin-Key認証の内側に配置される。
type AdminHandler struct {
	repo AdminMessageRepoInterface
	now  func() time.Time
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(repo AdminMessageRepoInterface) *AdminHandler {
	return &AdminHandler{
		repo: repo,
		now:  time.Now,
	}
}

// messageResponse は管理APIのメッセージ表現。
type messageResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	Status         string `json:"status"`
	Source         string `json:"source"`
	TelegramUserID *int64 `json:"telegram_user_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	RepliedAt      string `json:"replied_at,omitempty"`
}

func toMessageResponse(m *model.ContactMessage) messageResponse {
	resp := messageResponse{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		Subject:        m.Subject,
		Message:        m.Message,
		Status:         string(m.Status),
		Source:         string(m.Source),
		TelegramUserID: m.TelegramUserID,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
	if m.RepliedAt != nil {
		resp.RepliedAt = m.RepliedAt.Format(time.RFC3339)
	}
	return resp
}

// ListMessages は問い合わせメッセージの一覧を返す。
// GET /api/admin/messages?status=new&limit=50
func (h *AdminHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	status := model.MessageStatus(r.URL.Query().Get("status"))

	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	messages, err := h.repo.List(r.Context(), status, limit)
	if err != nil {
		slog.Error("failed to list messages", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	items := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		items = append(items, toMessageResponse(m))
	}

	writeJSON(w, map[string]any{"messages": items})
}

// updateStatusRequest はステータス更新のリクエストボディ。
type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateMessageStatus はメッセージのステータスを遷移させる。
// 遷移は new → read → replied の一方向のみ許可する。
// PATCH /api/admin/messages/{id}/status
func (h *AdminHandler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidationFailed,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "statusフィールドを含むJSONを送信してください。",
		})
		return
	}

	next := model.MessageStatus(req.Status)
	if next != model.MessageStatusRead && next != model.MessageStatusReplied {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(map[string][]string{
			"status": {"statusはreadまたはrepliedを指定してください。"},
		}))
		return
	}

	msg, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to find message", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if msg == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewMessageNotFoundError(id))
		return
	}

	if !msg.Status.CanTransitionTo(next) {
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewInvalidTransitionError(msg.Status, next))
		return
	}

	var repliedAt *time.Time
	if next == model.MessageStatusReplied {
		now := h.now()
		repliedAt = &now
	}

	if err := h.repo.UpdateStatus(r.Context(), id, next, repliedAt); err != nil {
		slog.Error("failed to update message status", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	msg.Status = next
	msg.RepliedAt = repliedAt

	writeJSON(w, map[string]any{"message": toMessageResponse(msg)})
}
