package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は利用者入力のプレーンテキスト化機能のインターフェースを定義する。
// 問い合わせフォームの各フィールドの保存前および通知送信前に使用される。
type TextSanitizerService interface {
	// SanitizeText は入力からすべてのHTMLタグを除去し、
	// 制御文字を取り除いたプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 問い合わせ本文はHTMLとして表示しないため、許可タグは一切ない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からHTMLタグと制御文字を除去したプレーンテキストを返す。
// StrictPolicyはタグ除去後にエンティティをエスケープするため、
// 保存用に一度アンエスケープして元のテキストへ戻す。
func (s *textSanitizer) SanitizeText(raw string) string {
	stripped := s.policy.Sanitize(raw)
	unescaped := html.UnescapeString(stripped)

	var b strings.Builder
	b.Grow(len(unescaped))
	for _, r := range unescaped {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
