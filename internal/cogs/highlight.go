package cogs

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "monokai"

// Highlight writes source with ANSI syntax colours. On any highlighter
// error the plain source is written instead.
func Highlight(w io.Writer, source, style string) error {
	if style == "" {
		style = DefaultStyle
	}
	var buf strings.Builder
	if err := quick.Highlight(&buf, source, "javascript", "terminal256", style); err != nil {
		_, werr := io.WriteString(w, source)
		return werr
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// HighlightNumbered is Highlight with a line-number gutter.
func HighlightNumbered(w io.Writer, source, style string) error {
	var buf strings.Builder
	if err := Highlight(&buf, source, style); err != nil {
		return err
	}

	n := len(strings.Split(strings.TrimSuffix(source, "\n"), "\n"))
	lines := strings.Split(buf.String(), "\n")
	width := len(fmt.Sprint(n))
	for i, line := range lines {
		if i >= n {
			// Trailing reset codes after the last source line.
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%*d │ %s\n", width, i+1, line); err != nil {
			return err
		}
	}
	return nil
}
