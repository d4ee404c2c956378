package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// fakeAdminRepo はテスト用のAdminMessageRepoInterface実装。
type fakeAdminRepo struct {
	messages map[string]*model.ContactMessage

	listStatus model.MessageStatus
	listLimit  int

	updatedID     string
	updatedStatus model.MessageStatus
	updatedAt     *time.Time
}

func (f *fakeAdminRepo) FindByID(_ context.Context, id string) (*model.ContactMessage, error) {
	return f.messages[id], nil
}

func (f *fakeAdminRepo) List(_ context.Context, status model.MessageStatus, limit int) ([]*model.ContactMessage, error) {
	f.listStatus = status
	f.listLimit = limit
	var out []*model.ContactMessage
	for _, m := range f.messages {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeAdminRepo) UpdateStatus(_ context.Context, id string, status model.MessageStatus, repliedAt *time.Time) error {
	f.updatedID = id
	f.updatedStatus = status
	f.updatedAt = repliedAt
	return nil
}

func patchStatusRequest(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/messages/"+id+"/status", strings.NewReader(body))
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

// ステータスフィルター付きの一覧取得を検証
func TestAdminHandler_ListMessages_StatusFilter(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{
		"m1": {ID: "m1", Name: "A", Subject: "S1", Status: model.MessageStatusNew, CreatedAt: time.Now()},
		"m2": {ID: "m2", Name: "B", Subject: "S2", Status: model.MessageStatusRead, CreatedAt: time.Now()},
	}}
	h := NewAdminHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages?status=new&limit=10", nil)
	rec := httptest.NewRecorder()
	h.ListMessages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.listStatus != model.MessageStatusNew {
		t.Errorf("listStatus = %q, want new", repo.listStatus)
	}
	if repo.listLimit != 10 {
		t.Errorf("listLimit = %d, want 10", repo.listLimit)
	}

	var body struct {
		Messages []messageResponse `json:"messages"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if len(body.Messages) != 1 || body.Messages[0].ID != "m1" {
		t.Errorf("messages = %+v", body.Messages)
	}
}

// limit未指定時にデフォルト値が使われることを検証
func TestAdminHandler_ListMessages_DefaultLimit(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{}}
	h := NewAdminHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	rec := httptest.NewRecorder()
	h.ListMessages(rec, req)

	if repo.listLimit != defaultMessageLimit {
		t.Errorf("listLimit = %d, want %d", repo.listLimit, defaultMessageLimit)
	}
}

// new→readの正常遷移を検証
func TestAdminHandler_UpdateMessageStatus_NewToRead(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{
		"m1": {ID: "m1", Status: model.MessageStatusNew, CreatedAt: time.Now()},
	}}
	h := NewAdminHandler(repo)

	rec := httptest.NewRecorder()
	h.UpdateMessageStatus(rec, patchStatusRequest("m1", `{"status":"read"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.updatedID != "m1" || repo.updatedStatus != model.MessageStatusRead {
		t.Errorf("updated = %q/%q", repo.updatedID, repo.updatedStatus)
	}
	if repo.updatedAt != nil {
		t.Error("replied_at should not be set for read")
	}

	var body struct {
		Message messageResponse `json:"message"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Message.Status != "read" {
		t.Errorf("Status = %q, want read", body.Message.Status)
	}
}

// repliedへの遷移でreplied_atが設定されることを検証
func TestAdminHandler_UpdateMessageStatus_RepliedSetsTimestamp(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{
		"m1": {ID: "m1", Status: model.MessageStatusRead, CreatedAt: time.Now()},
	}}
	h := NewAdminHandler(repo)
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rec := httptest.NewRecorder()
	h.UpdateMessageStatus(rec, patchStatusRequest("m1", `{"status":"replied"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.updatedAt == nil || !repo.updatedAt.Equal(fixed) {
		t.Errorf("updatedAt = %v, want %v", repo.updatedAt, fixed)
	}

	var body struct {
		Message messageResponse `json:"message"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Message.RepliedAt == "" {
		t.Error("replied_at should be present in response")
	}
}

// 逆方向の遷移に409が返ることを検証
func TestAdminHandler_UpdateMessageStatus_InvalidTransition(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{
		"m1": {ID: "m1", Status: model.MessageStatusReplied, CreatedAt: time.Now()},
	}}
	h := NewAdminHandler(repo)

	rec := httptest.NewRecorder()
	h.UpdateMessageStatus(rec, patchStatusRequest("m1", `{"status":"read"}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var body middleware.ErrorResponseBody
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != model.ErrCodeInvalidTransition {
		t.Errorf("code = %q, want INVALID_TRANSITION", body.Code)
	}
	if repo.updatedID != "" {
		t.Error("UpdateStatus should not be called")
	}
}

// 存在しないIDに404が返ることを検証
func TestAdminHandler_UpdateMessageStatus_NotFound(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{}}
	h := NewAdminHandler(repo)

	rec := httptest.NewRecorder()
	h.UpdateMessageStatus(rec, patchStatusRequest("missing", `{"status":"read"}`))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// 不正なステータス値に400が返ることを検証
func TestAdminHandler_UpdateMessageStatus_InvalidValue(t *testing.T) {
	repo := &fakeAdminRepo{messages: map[string]*model.ContactMessage{
		"m1": {ID: "m1", Status: model.MessageStatusNew, CreatedAt: time.Now()},
	}}
	h := NewAdminHandler(repo)

	rec := httptest.NewRecorder()
	h.UpdateMessageStatus(rec, patchStatusRequest("m1", `{"status":"archived"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
