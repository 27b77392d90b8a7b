package security

import (
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// 本文として扱わない要素
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// Excerpt はHTMLからテキストだけを取り出し、空白を1つにまとめてmaxRunes文字以内に切り詰める。
// 切り詰めた場合は単語の途中で切らないよう直前の空白で区切り、末尾に「…」を付ける。
func Excerpt(rawHTML string, maxRunes int) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))

	var b strings.Builder
	skipDepth := 0
loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return ""
			}
			break loop
		case html.StartTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] {
				skipDepth++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	return truncate(text, maxRunes)
}

func truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}

	cut := runes[:maxRunes]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + "…"
}
