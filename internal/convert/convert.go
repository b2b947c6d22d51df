// Package convert translates note content between the Markdown kept in the
// local store and the HTML bodies stored on the mail server.
package convert

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// MarkdownToHTML renders note text for upload.
func MarkdownToHTML(text string) (string, error) {
	var b bytes.Buffer
	if err := renderer.Convert([]byte(text), &b); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return b.String(), nil
}

// HTMLToMarkdown turns a downloaded HTML body back into note text.
func HTMLToMarkdown(body string) (string, error) {
	conv := md.NewConverter("", true, &md.Options{CodeBlockStyle: "fenced"})
	conv.Use(plugin.GitHubFlavored())
	conv.AddRules(lineBreak)

	text, err := conv.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("converting html: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// lineBreak keeps a <br> inside its paragraph as a single newline. A break
// already followed by a newline in the source adds nothing.
var lineBreak = md.Rule{
	Filter: []string{"br"},
	Replacement: func(_ string, selec *goquery.Selection, _ *md.Options) *string {
		if next := selec.Nodes[0].NextSibling; next != nil && strings.HasPrefix(next.Data, "\n") {
			return md.String("")
		}
		return md.String("\n")
	},
}
