package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFormatsMarkdown(t *testing.T) {
	out, err := Render("Polls **IMAP** folders.\n\n- inbox\n- orders")
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "<strong>IMAP</strong>")
	assert.Contains(t, html, "<li>inbox</li>")
}

func TestRenderStripsScripts(t *testing.T) {
	out, err := Render("hi <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	html := strings.ToLower(string(out))
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "javascript:")
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render("")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, MustRender(""))
}
