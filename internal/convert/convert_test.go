package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("# Groceries\n\n- milk\n- eggs\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Groceries</h1>")
	assert.Contains(t, out, "<li>milk</li>")
}

func TestHTMLToMarkdown(t *testing.T) {
	out, err := HTMLToMarkdown("<h1>Title</h1><p>hello <strong>world</strong></p>")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nhello **world**", out)
}

func TestRoundTripKeepsHeadingAndList(t *testing.T) {
	html, err := MarkdownToHTML("# Plan\n\n- one\n- two")
	require.NoError(t, err)

	text, err := HTMLToMarkdown(html)
	require.NoError(t, err)
	assert.Contains(t, text, "# Plan")
	assert.Contains(t, text, "- one")
	assert.Contains(t, text, "- two")
}

func TestRoundTripKeepsLinesWithinParagraph(t *testing.T) {
	for _, text := range []string{
		"# List\n\nmilk\neggs",
		"# Trip\n\nday one\nday two\n\n- pack\n- go",
	} {
		html, err := MarkdownToHTML(text)
		require.NoError(t, err)

		got, err := HTMLToMarkdown(html)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestHTMLToMarkdown_LineBreaks(t *testing.T) {
	out, err := HTMLToMarkdown("<p>milk<br>eggs</p>")
	require.NoError(t, err)
	assert.Equal(t, "milk\neggs", out)

	out, err = HTMLToMarkdown("<p>milk<br>\neggs</p>")
	require.NoError(t, err)
	assert.Equal(t, "milk\neggs", out)
}
