// internal/browser/page_test.go
package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/intakefill/internal/config"
)

func TestJSStringEscaping(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", `"hello"`},
		{"single quotes", "o'neill", `"o'neill"`},
		{"double quotes", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"script breakout attempt", "'); alert(1); ('", `"'); alert(1); ('"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, jsString(tc.input))
		})
	}
}

func TestNodeScriptWrapsSelectorSafely(t *testing.T) {
	selector := `//*[@id='phone']`
	script := nodeScript(selector, `return node.value;`, `''`)

	assert.True(t, strings.HasPrefix(script, "(() => {"))
	assert.True(t, strings.HasSuffix(script, "})()"))
	// The selector must appear as an encoded literal, not raw text.
	assert.Contains(t, script, `"//*[@id='phone']"`)
	assert.Contains(t, script, "XPathResult.FIRST_ORDERED_NODE_TYPE")
	assert.Contains(t, script, `if (!node) { return ''; }`)
	assert.Contains(t, script, "return node.value;")
}

func TestNodeScriptMissingValueIsVerbatim(t *testing.T) {
	script := nodeScript("//input", "return true;", "false")
	assert.Contains(t, script, "if (!node) { return false; }")
}

func TestBuildAllocatorOptionsDoesNotPanic(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Browser.Args = []string{"--lang=en-US", "--mute-audio"}
	m := &Manager{cfg: cfg}

	opts := m.buildAllocatorOptions()
	require.NotEmpty(t, opts)
	// Default option set plus our explicit flags.
	assert.Greater(t, len(opts), 4)
}
