package bot

import (
	"fmt"
	"log/slog"
	"time"
)

// Log sources.
const (
	SourceClient   = "discord"
	SourceCommands = "commands"
	SourceRunner   = "runner"
)

// LogLine is one entry of the runner's log stream.
type LogLine struct {
	Time      time.Time
	Level     slog.Level
	Source    string
	Message   string
	SessionID string
}

func (l LogLine) String() string {
	return fmt.Sprintf("%s %s %s %s", l.Time.Format("2006-01-02 15:04:05"), l.Level, l.Source, l.Message)
}
