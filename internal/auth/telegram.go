// Package auth はTelegramログインウィジェットの署名検証と識別レコード管理を提供する。
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 検証失敗の種別。呼び出し側はerrors.Isで分類しHTTPステータスへ変換する。
var (
	// ErrProviderNotConfigured はボットトークン未設定で検証できない状態を表す。
	ErrProviderNotConfigured = errors.New("telegram auth is not configured")
	// ErrMissingSignature はペイロードにhashフィールドがないことを表す。
	ErrMissingSignature = errors.New("payload is missing signature hash")
	// ErrStalePayload はauth_dateが許容期間を超えて古いことを表す。
	ErrStalePayload = errors.New("auth payload is stale")
	// ErrInvalidSignature は署名が一致しないことを表す。
	ErrInvalidSignature = errors.New("auth payload signature is invalid")
)

// maxPayloadAge はauth_dateの許容経過時間。これを超えたペイロードは
// リプレイとみなして拒否する。
const maxPayloadAge = 24 * time.Hour

// Verifier はTelegramログインウィジェットのペイロード署名を検証する。
// 検証鍵はボットトークンのSHA-256ダイジェスト（生バイト列）。
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier はVerifierを生成する。botTokenが空の場合、
// Verifyは常にErrProviderNotConfiguredを返す。
func NewVerifier(botToken string) *Verifier {
	v := &Verifier{now: time.Now}
	if botToken != "" {
		sum := sha256.Sum256([]byte(botToken))
		v.secret = sum[:]
	}
	return v
}

// Enabled は検証鍵が設定されているかを返す。
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify はペイロードの署名と鮮度を検証する。
// 検証手順:
//  1. hashフィールドを取り出す（なければErrMissingSignature）
//  2. auth_dateがmaxPayloadAgeを超えて古ければErrStalePayload
//     （auth_dateの欠落・解釈不能も期限切れとして扱う）
//  3. hash以外のフィールドをキー昇順で "key=value" に整形し改行で連結
//  4. HMAC-SHA256を計算しhashと定数時間比較（不一致はErrInvalidSignature）
func (v *Verifier) Verify(payload map[string]any) error {
	if !v.Enabled() {
		return ErrProviderNotConfigured
	}

	providedHash, ok := payload["hash"].(string)
	if !ok || providedHash == "" {
		return ErrMissingSignature
	}

	// 署名検証より先に鮮度を確認する。期限切れの正規ペイロードに
	// 署名エラーを返さないため。auth_dateが欠落または数値として
	// 解釈できない場合はUnix時刻0として扱い、常に期限切れとする。
	authDate, ok := extractAuthDate(payload)
	if !ok || v.now().Sub(authDate) > maxPayloadAge {
		return ErrStalePayload
	}

	expected := hmac.New(sha256.New, v.secret)
	expected.Write([]byte(canonicalCheckString(payload)))
	expectedHex := hex.EncodeToString(expected.Sum(nil))

	if !hmac.Equal([]byte(expectedHex), []byte(strings.ToLower(providedHash))) {
		return ErrInvalidSignature
	}

	return nil
}

// canonicalCheckString はhashを除く全フィールドをキー昇順の
// "key=value" 行として改行連結した検証対象文字列を返す。
func canonicalCheckString(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+formatValue(payload[k]))
	}

	return strings.Join(lines, "\n")
}

// formatValue はJSONデコード済みの値を署名対象の文字列表現へ変換する。
// JSON数値はfloat64になるため、整数値は小数点なしで整形する。
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// extractAuthDate はペイロードからauth_dateをUnix秒として取り出す。
func extractAuthDate(payload map[string]any) (time.Time, bool) {
	sec, ok := numericField(payload, "auth_date")
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// numericField はペイロードの数値フィールドをint64として取り出す。
// ウィジェットはJSON数値を送るが、数値文字列の表現も受け付ける。
func numericField(payload map[string]any, key string) (int64, bool) {
	switch val := payload[key].(type) {
	case float64:
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
