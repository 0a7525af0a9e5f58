package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello", "hello"},
		{"simple paragraph", "<p>hello</p>", "hello"},
		{"nested tags", "<p>hello <b>world</b></p>", "hello world"},
		{"line break", "one<br/>two", "one\ntwo"},
		{"paragraphs become lines", "<p>one</p><p>two</p>", "one\ntwo"},
		{"entities", "a &amp; b &lt;ok&gt;", "a & b <ok>"},
		{"attributes ignored", `<a href="https://x.test">link</a>`, "link"},
		{"empty", "", ""},
		{"only tags", "<p></p>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}
