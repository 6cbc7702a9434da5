package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"github.com/nextlevelbuilder/cogman/internal/bot"
)

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	levelStyles = map[slog.Level]lipgloss.Style{
		slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// formatLogLine renders a bot log line. Without colour it is LogLine.String.
func formatLogLine(l bot.LogLine, color bool) string {
	if !color {
		return l.String()
	}
	level := fmt.Sprintf("%-5s", l.Level.String())
	if st, ok := levelStyles[l.Level]; ok {
		level = st.Render(level)
	}
	return fmt.Sprintf("%s %s %s %s",
		timeStyle.Render(l.Time.Format("2006-01-02 15:04:05")),
		level,
		sourceStyle.Render(l.Source),
		l.Message)
}

// printLogs copies lines to w until ctx ends, then flushes what is buffered.
func printLogs(ctx context.Context, w io.Writer, lines <-chan bot.LogLine, color bool) {
	for {
		select {
		case l := <-lines:
			fmt.Fprintln(w, formatLogLine(l, color))
		case <-ctx.Done():
			for {
				select {
				case l := <-lines:
					fmt.Fprintln(w, formatLogLine(l, color))
				default:
					return
				}
			}
		}
	}
}
