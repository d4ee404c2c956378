package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string              // エラーコード
	Message  string              // エラーメッセージ
	Category string              // カテゴリ: auth, validation, contact, system
	Action   string              // ユーザー向け対処方法
	Fields   map[string][]string // フィールド単位のバリデーションエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingSignature      = "MISSING_SIGNATURE"
	ErrCodeStalePayload          = "STALE_PAYLOAD"
	ErrCodeInvalidSignature      = "INVALID_SIGNATURE"
	ErrCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeProjectNotFound       = "PROJECT_NOT_FOUND"
	ErrCodeResumeNotFound        = "RESUME_NOT_FOUND"
	ErrCodeMessageNotFound       = "MESSAGE_NOT_FOUND"
	ErrCodeInvalidTransition     = "INVALID_STATUS_TRANSITION"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeConfigError           = "CONFIG_ERROR"
)

// NewMissingSignatureError は署名フィールド欠落エラーを生成する。
func NewMissingSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingSignature,
		Message:  "認証データに署名が含まれていません。",
		Category: "auth",
		Action:   "Telegramログインウィジェットからやり直してください。",
	}
}

// NewStalePayloadError は認証データの鮮度切れエラーを生成する。
func NewStalePayloadError() *APIError {
	return &APIError{
		Code:     ErrCodeStalePayload,
		Message:  "認証データの有効期限が切れています。",
		Category: "auth",
		Action:   "もう一度Telegramでログインしてください。",
	}
}

// NewInvalidSignatureError は署名不一致エラーを生成する。
// 偽造の手掛かりを与えないため、詳細は含めない。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "認証データの検証に失敗しました。",
		Category: "auth",
		Action:   "もう一度Telegramでログインしてください。",
	}
}

// NewProviderNotConfiguredError はボット未設定エラーを生成する。
// クライアント起因ではなくデプロイ設定の問題であることを区別できるようにする。
func NewProviderNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderNotConfigured,
		Message:  "Telegramログインが設定されていません。",
		Category: "system",
		Action:   "サイト管理者に連絡してください。",
	}
}

// NewValidationFailedError はフィールド単位のバリデーションエラーを生成する。
func NewValidationFailedError(fields map[string][]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラーを確認して修正してください。",
		Fields:   fields,
	}
}

// NewRateLimitedError はコンタクトフォームのレート制限エラーを生成する。
// 残り回数などの詳細は開示しない。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "送信回数が多すぎます。数分待ってからお試しください。",
		Category: "contact",
		Action:   "しばらく待ってから再度送信してください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", id),
		Category: "validation",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewResumeNotFoundError は公開中のCVが存在しない場合のエラーを生成する。
func NewResumeNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeResumeNotFound,
		Message:  "公開中のCVがありません。",
		Category: "validation",
		Action:   "後ほど再度お試しください。",
	}
}

// NewMessageNotFoundError はメッセージ未検出エラーを生成する。
func NewMessageNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMessageNotFound,
		Message:  fmt.Sprintf("指定されたメッセージが見つかりません: %s", id),
		Category: "contact",
		Action:   "メッセージIDを確認してください。",
	}
}

// NewInvalidTransitionError は許可されないステータス遷移エラーを生成する。
func NewInvalidTransitionError(from, to MessageStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("ステータスを %s から %s へ変更することはできません。", from, to),
		Category: "contact",
		Action:   "遷移は new → read → replied の順にのみ行えます。",
	}
}
