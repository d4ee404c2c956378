package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/folio/internal/guard"
	"github.com/hitoshi/folio/internal/model"
)

// fakeContactRepo はテスト用のContactMessageRepository実装。
type fakeContactRepo struct {
	created   []*model.ContactMessage
	createErr error
}

func (f *fakeContactRepo) Create(_ context.Context, msg *model.ContactMessage) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeContactRepo) FindByID(context.Context, string) (*model.ContactMessage, error) {
	return nil, nil
}

func (f *fakeContactRepo) List(context.Context, model.MessageStatus, int) ([]*model.ContactMessage, error) {
	return f.created, nil
}

func (f *fakeContactRepo) UpdateStatus(context.Context, string, model.MessageStatus, *time.Time) error {
	return nil
}

// fakeNotifier は通知呼び出しを記録するテスト用チャネル。
// 通知は非同期に実行されるためチャネル経由で受け取る。
type fakeNotifier struct {
	ch  chan *model.ContactMessage
	err error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan *model.ContactMessage, 8)}
}

func (f *fakeNotifier) Notify(_ context.Context, msg *model.ContactMessage) error {
	f.ch <- msg
	return f.err
}

// wait は通知が1件届くのを待つ。
func (f *fakeNotifier) wait(t *testing.T) *model.ContactMessage {
	t.Helper()
	select {
	case msg := <-f.ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a notification, got none")
		return nil
	}
}

// expectNone は通知が届かないことを確認する。
func (f *fakeNotifier) expectNone(t *testing.T) {
	t.Helper()
	select {
	case msg := <-f.ch:
		t.Fatalf("unexpected notification for message %s", msg.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func validInput() SubmitInput {
	return SubmitInput{
		Name:      "山田太郎",
		Email:     "taro@example.com",
		Subject:   "お仕事の相談",
		Message:   "はじめまして。相談があります。",
		IPAddress: "203.0.113.1",
	}
}

// fakeTelegramUsers はテスト用のTelegramUserRepository実装。
type fakeTelegramUsers struct {
	known map[int64]*model.TelegramUser
	err   error
}

func (f *fakeTelegramUsers) Upsert(context.Context, *model.TelegramUser) error {
	return nil
}

func (f *fakeTelegramUsers) FindByTelegramID(_ context.Context, telegramID int64) (*model.TelegramUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.known[telegramID], nil
}

func (f *fakeTelegramUsers) UpdateAvatar(context.Context, int64, []byte, string) error {
	return nil
}

func newTestService(repo *fakeContactRepo, notifier *fakeNotifier) *Service {
	g := guard.New(guard.NewMemoryStore(time.Minute), 3, 10*time.Minute)
	if notifier == nil {
		return NewService(repo, nil, g, nil, nil)
	}
	return NewService(repo, nil, g, nil, notifier)
}

// 正常な入力が保存され通知されることを検証
func TestService_Submit_CreatesAndNotifies(t *testing.T) {
	repo := &fakeContactRepo{}
	notifier := newFakeNotifier()
	svc := newTestService(repo, notifier)

	msg, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("created = %d messages, want 1", len(repo.created))
	}
	if msg.Status != model.MessageStatusNew {
		t.Errorf("Status = %q, want new", msg.Status)
	}
	if msg.Source != model.MessageSourceSite {
		t.Errorf("Source = %q, want site", msg.Source)
	}
	if msg.ID == "" {
		t.Error("message should have a generated ID")
	}

	notified := notifier.wait(t)
	if notified.ID != msg.ID {
		t.Errorf("notified message = %s, want %s", notified.ID, msg.ID)
	}
}

// おとりフィールドに値があると保存も通知もされないことを検証
func TestService_Submit_HoneypotTripped(t *testing.T) {
	repo := &fakeContactRepo{}
	notifier := newFakeNotifier()
	svc := newTestService(repo, notifier)

	input := validInput()
	input.Website = "https://spam.example.com"

	_, err := svc.Submit(context.Background(), input)
	if !errors.Is(err, ErrHoneypotTripped) {
		t.Errorf("Submit() = %v, want ErrHoneypotTripped", err)
	}
	if len(repo.created) != 0 {
		t.Error("honeypot submission should not be stored")
	}
	notifier.expectNone(t)
}

// 必須フィールド欠落がフィールド単位のエラーになることを検証
func TestService_Submit_ValidationErrors(t *testing.T) {
	repo := &fakeContactRepo{}
	svc := newTestService(repo, nil)

	input := SubmitInput{Message: "短い", IPAddress: "203.0.113.1"}

	_, err := svc.Submit(context.Background(), input)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Submit() = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want VALIDATION_FAILED", apiErr.Code)
	}
	for _, field := range []string{"name", "subject", "message"} {
		if len(apiErr.Fields[field]) == 0 {
			t.Errorf("expected validation error for field %q", field)
		}
	}
	if len(repo.created) != 0 {
		t.Error("invalid submission should not be stored")
	}
}

// メールアドレスは任意だが指定時は形式を確認することを検証
func TestService_Submit_OptionalEmail(t *testing.T) {
	repo := &fakeContactRepo{}
	svc := newTestService(repo, nil)

	noEmail := validInput()
	noEmail.Email = ""
	if _, err := svc.Submit(context.Background(), noEmail); err != nil {
		t.Errorf("Submit() without email = %v, want nil", err)
	}

	badEmail := validInput()
	badEmail.Email = "not-an-email"
	_, err := svc.Submit(context.Background(), badEmail)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields["email"]) == 0 {
		t.Errorf("Submit() with bad email = %v, want email validation error", err)
	}
}

// 同一IPからの4回目の送信が拒否されることを検証
func TestService_Submit_RateLimited(t *testing.T) {
	repo := &fakeContactRepo{}
	svc := newTestService(repo, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), validInput()); err != nil {
			t.Fatalf("submission %d failed: %v", i+1, err)
		}
	}

	_, err := svc.Submit(context.Background(), validInput())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRateLimited {
		t.Errorf("4th Submit() = %v, want RATE_LIMITED", err)
	}
	if len(repo.created) != 3 {
		t.Errorf("created = %d, want 3", len(repo.created))
	}
}

// バリデーション失敗も制限カウントを消費することを検証
func TestService_Submit_InvalidAttemptsCountAgainstLimit(t *testing.T) {
	repo := &fakeContactRepo{}
	svc := newTestService(repo, nil)

	bad := SubmitInput{IPAddress: "203.0.113.9"}
	for i := 0; i < 3; i++ {
		svc.Submit(context.Background(), bad)
	}

	good := validInput()
	good.IPAddress = "203.0.113.9"
	_, err := svc.Submit(context.Background(), good)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRateLimited {
		t.Errorf("Submit() after 3 invalid attempts = %v, want RATE_LIMITED", err)
	}
}

// 通知失敗が受理を妨げないことを検証
func TestService_Submit_NotifyFailureIgnored(t *testing.T) {
	repo := &fakeContactRepo{}
	notifier := newFakeNotifier()
	notifier.err = errors.New("telegram down")
	svc := newTestService(repo, notifier)

	if _, err := svc.Submit(context.Background(), validInput()); err != nil {
		t.Errorf("Submit() = %v, want nil despite notify failure", err)
	}
	if len(repo.created) != 1 {
		t.Error("message should be stored even when notification fails")
	}
	notifier.wait(t)
}

// 登録済みユーザーのtelegram送信がsourceと識別IDを保持することを検証
func TestService_Submit_TelegramSource(t *testing.T) {
	repo := &fakeContactRepo{}
	tgID := int64(987654)
	users := &fakeTelegramUsers{known: map[int64]*model.TelegramUser{
		tgID: {TelegramID: tgID, Username: "taro_dev"},
	}}
	g := guard.New(guard.NewMemoryStore(time.Minute), 3, 10*time.Minute)
	svc := NewService(repo, users, g, nil, nil)

	input := validInput()
	input.Source = model.MessageSourceTelegram
	input.TelegramUserID = &tgID

	msg, err := svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if msg.Source != model.MessageSourceTelegram {
		t.Errorf("Source = %q, want telegram", msg.Source)
	}
	if msg.TelegramUserID == nil || *msg.TelegramUserID != tgID {
		t.Errorf("TelegramUserID = %v, want %d", msg.TelegramUserID, tgID)
	}
}

// 未登録のtelegram_user_idはリンクせずサイト送信として受理することを検証
func TestService_Submit_UnknownTelegramUserDegradesToSite(t *testing.T) {
	repo := &fakeContactRepo{}
	users := &fakeTelegramUsers{known: map[int64]*model.TelegramUser{}}
	g := guard.New(guard.NewMemoryStore(time.Minute), 3, 10*time.Minute)
	svc := NewService(repo, users, g, nil, nil)

	tgID := int64(424242)
	input := validInput()
	input.Source = model.MessageSourceTelegram
	input.TelegramUserID = &tgID

	msg, err := svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if msg.TelegramUserID != nil {
		t.Errorf("TelegramUserID = %v, want nil for unknown user", *msg.TelegramUserID)
	}
	if msg.Source != model.MessageSourceSite {
		t.Errorf("Source = %q, want site", msg.Source)
	}
	if len(repo.created) != 1 {
		t.Errorf("created = %d messages, want 1", len(repo.created))
	}
}

// ユーザー参照の障害が受理を妨げないことを検証
func TestService_Submit_TelegramLookupFailureDegradesToSite(t *testing.T) {
	repo := &fakeContactRepo{}
	users := &fakeTelegramUsers{err: errors.New("db down")}
	g := guard.New(guard.NewMemoryStore(time.Minute), 3, 10*time.Minute)
	svc := NewService(repo, users, g, nil, nil)

	tgID := int64(7)
	input := validInput()
	input.TelegramUserID = &tgID

	msg, err := svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if msg.TelegramUserID != nil || msg.Source != model.MessageSourceSite {
		t.Errorf("message = (%v, %q), want unlinked site submission", msg.TelegramUserID, msg.Source)
	}
}
