package ui

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdownOnce sync.Once
	markdownConv goldmark.Markdown
	sanitizer    *bluemonday.Policy
)

// Markdown converts a markdown string (job results are often markdown
// reports) to sanitized HTML.
func Markdown(src string) template.HTML {
	markdownOnce.Do(func() {
		markdownConv = goldmark.New(goldmark.WithExtensions(extension.GFM))
		sanitizer = bluemonday.UGCPolicy()
	})

	var buf bytes.Buffer
	if err := markdownConv.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
