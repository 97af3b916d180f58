// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力の顧客名からHTMLマークアップを除去し、
// ダッシュボード表示時のXSS攻撃からユーザーを保護する。
// bluemondayのStrictPolicy（全タグ除去）を使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキストのサニタイズ機能のインターフェースを定義する。
// 顧客レコードの保存前に使用される。
type TextSanitizerService interface {
	// SanitizeText は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// scriptタグやon*イベント属性を含むマークアップは全て除去される。
	// HTMLエンティティは元の文字にデコードされる（保存するのは生テキストであり、
	// エスケープは表示層のJSONエンコーダが行う）。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、全てのマークアップが除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力から全てのHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはタグ除去後のテキストをエスケープ済みで返すため、
// エンティティをデコードして生テキストに戻す。
// 改行・タブは空白に正規化する。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	decoded := html.UnescapeString(stripped)
	decoded = strings.ReplaceAll(decoded, "\n", " ")
	decoded = strings.ReplaceAll(decoded, "\r", " ")
	decoded = strings.ReplaceAll(decoded, "\t", " ")
	return decoded
}
