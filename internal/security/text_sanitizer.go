// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが投稿する自由記述テキスト（コメント本文、リクエストの説明）から
// HTMLタグを除去し、プレーンテキストとして保存できる形に整える。
// bluemondayのStrictPolicyを使用するため、タグは許可リストに関わらず全て除去される。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は入力からHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// 文字実体は元の文字に戻すが、戻した結果のタグも除去する。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなため、1インスタンスを共有する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxDecodePasses は文字実体の多重エンコードを剥がす回数の上限。
const maxDecodePasses = 4

// Sanitize はHTMLタグを除去したプレーンテキストを返す。
// 文字実体を戻した結果がタグになる場合はもう一度除去し、変化しなくなるまで繰り返す。
// 上限回数で収束しない場合はエスケープされたまま返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	text := raw
	for range maxDecodePasses {
		decoded := html.UnescapeString(s.policy.Sanitize(text))
		if decoded == text {
			return strings.TrimSpace(text)
		}
		text = decoded
	}
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
