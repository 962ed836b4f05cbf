package preview

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

func newMarkdownRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// RenderMarkdown converts markdown source to HTML. Raw HTML in the source
// is omitted.
func RenderMarkdown(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	err := md.Convert([]byte(src), &buf)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
