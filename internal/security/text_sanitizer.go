// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力するプレーンテキスト（表示名など）にHTMLマークアップが
// 含まれていないかを判定する。bluemondayのStrictPolicyで全タグを除去した結果と
// 元の文字列を比較し、差分があればマークアップを含むとみなす。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のマークアップ検査を行う。
// bluemondayのポリシーは並行利用可能なため、1つのインスタンスを共有してよい。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はすべてのタグを許可しないポリシーでTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Strip はsからすべてのタグを除去したプレーンテキストを返す。
// StrictPolicyがエスケープした文字実体は元の文字に戻す。
func (s *TextSanitizer) Strip(text string) string {
	return html.UnescapeString(s.policy.Sanitize(text))
}

// ContainsMarkup はtextにHTMLタグなどのマークアップが含まれる場合にtrueを返す。
// "a < b" や "Tom & Jerry" のようにタグとして解釈されない記号は許可する。
func (s *TextSanitizer) ContainsMarkup(text string) bool {
	return s.Strip(text) != text
}
