package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-shellwords"

	"github.com/nextlevelbuilder/cogman/internal/cogs"
)

// maxMessageLen is Discord's per-message character limit.
const maxMessageLen = 2000

// ParseCommand splits a prefixed chat message into a command invocation.
// Arguments follow shell quoting ("two words" is one argument); on a
// quoting error they fall back to whitespace splitting.
func ParseCommand(prefix, content string) (cogs.Invocation, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return cogs.Invocation{}, false
	}
	rest := strings.TrimPrefix(content, prefix)
	if rest == "" || strings.HasPrefix(rest, " ") {
		return cogs.Invocation{}, false
	}

	name, argLine, _ := strings.Cut(rest, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return cogs.Invocation{}, false
	}

	args, err := shellwords.Parse(argLine)
	if err != nil {
		args = strings.Fields(argLine)
	}
	return cogs.Invocation{Command: name, Args: args, Content: content}, true
}

// helpText lists the available commands in a code block.
func helpText(prefix string, cmds []cogs.CommandInfo) string {
	if len(cmds) == 0 {
		return "No commands loaded."
	}
	var sb strings.Builder
	sb.WriteString("```\n")
	for _, c := range cmds {
		desc := c.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&sb, "%s%-16s %s [%s]\n", prefix, c.Name, desc, c.Cog)
	}
	sb.WriteString("```")
	return sb.String()
}

// chunkMessage splits text into pieces Discord accepts, preferring line breaks.
func chunkMessage(text string) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for utf8.RuneCountInString(text) > maxMessageLen {
		cut := byteIndexOfRune(text, maxMessageLen)
		if nl := strings.LastIndex(text[:cut], "\n"); nl > 0 {
			cut = nl + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func byteIndexOfRune(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
