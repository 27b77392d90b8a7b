// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer は管理画面で入力された車両説明文のHTMLをサニタイズし、
// 公開画面に埋め込んでも安全なHTMLだけを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer は車両説明文のHTMLをサニタイズするインターフェース。
type DescriptionSanitizer interface {
	// Sanitize は許可リストにないタグ・属性を除去したHTMLを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// descriptionSanitizer はDescriptionSanitizerの実装。
// bluemonday.Policyは並行利用できる。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, strong, em, b, i, h3, h4, a
//   - aタグ: httpsとhttpのhrefのみ。target="_blank" と rel="noopener noreferrer" を付与
//   - img・script・iframe・style および on* イベント属性は除去
func NewDescriptionSanitizer() DescriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i",
		"h3", "h4",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https", "http")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &descriptionSanitizer{policy: p}
}

func (s *descriptionSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
