// Package sanitize converts Markdown or HTML recipe text into the plain text
// the bot sends to Telegram.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	blockBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</li>|</?[ou]l>`)
	listItems   = regexp.MustCompile(`(?i)<li>`)
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
)

// Policy strips markup from text.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPlainTextPolicy creates a Policy that removes Markdown and HTML. Raw
// HTML passes through the Markdown renderer so that its text survives until
// the strict policy drops the tags.
func NewPlainTextPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(goldmark.WithRendererOptions(goldhtml.WithUnsafe())),
	}
}

// PlainText renders Markdown to HTML, keeps block boundaries as line breaks
// and list items as "- " lines, then drops every tag and unescapes entities.
func (p *Policy) PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	out := listItems.ReplaceAllString(buf.String(), "- ")
	out = blockBreaks.ReplaceAllString(out, "\n")
	out = p.policy.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}

var defaultPolicy = NewPlainTextPolicy()

// PlainText strips markup using a shared policy.
func PlainText(text string) string {
	return defaultPolicy.PlainText(text)
}
