package email

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var (
	stripPolicy = bluemonday.StrictPolicy()
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
)

// Render 渲染模板，返回 HTML 和对应的纯文本
func Render(name string, data interface{}) (string, string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", err
	}
	htmlBody := buf.String()
	return htmlBody, PlainText(htmlBody), nil
}

// PlainText 去掉标签，得到邮件的纯文本部分
func PlainText(htmlBody string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(htmlBody))
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
