package markup

import (
	"bytes"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	// 评论只允许有限的 markdown，不开放原始 HTML
	commentMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
		),
	)
	commentPolicy = newCommentPolicy()
	storyPolicy   = newStoryPolicy()
	stripPolicy   = bluemonday.StrictPolicy()
)

func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.RequireNoFollowOnLinks(true)
	return p
}

func newStoryPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// RenderComment 评论 markdown 转为安全的 HTML
func RenderComment(source string) string {
	var buf bytes.Buffer
	if err := commentMarkdown.Convert([]byte(source), &buf); err != nil {
		return stripPolicy.Sanitize(source)
	}
	return strings.TrimSpace(commentPolicy.Sanitize(buf.String()))
}

// SanitizeHTML 清洗文章正文
func SanitizeHTML(source string) string {
	return storyPolicy.Sanitize(source)
}

// Excerpt 去掉所有标签后截取前 n 个字符
func Excerpt(source string, n int) string {
	text := strings.Join(strings.Fields(html.UnescapeString(stripPolicy.Sanitize(source))), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
