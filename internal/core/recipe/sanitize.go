package recipe

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer 將模型產生的 HTML 限制在白名單內
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer 建立白名單政策
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"h1", "h2", "h3", "h4", "p", "br", "hr",
		"ul", "ol", "li", "strong", "em", "b", "i", "u", "blockquote",
		"span", "div", "table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.Number).OnElements("img")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("th", "td")
	p.AllowURLSchemes("https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	return &Sanitizer{policy: p}
}

// Sanitize 清除不允許的標籤與屬性
func (s *Sanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

var (
	h1Pattern  = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ExtractTitle 取得第一個 <h1> 的文字
func ExtractTitle(sanitized string) string {
	m := h1Pattern.FindStringSubmatch(sanitized)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(m[1], "")))
}

// PlainText 移除標籤後的文字內容
func PlainText(sanitized string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(sanitized, " "))
}
