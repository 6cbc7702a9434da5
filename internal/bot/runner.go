// Package bot runs the Discord client that serves cog commands.
//
// The runner owns one session at a time. The shell talks to it only
// through Start, Stop, status queries and the one-way Logs channel.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/nextlevelbuilder/cogman/internal/cogs"
)

var (
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrNotRunning     = errors.New("bot is not running")
	ErrNoToken        = errors.New("bot token is empty")
)

// Config tunes the runner.
type Config struct {
	Prefix         string
	CommandTimeout time.Duration
	LogBuffer      int

	// CommandsPerMinute limits commands per user; 0 disables the limit.
	CommandsPerMinute int
	CommandBurst      int
}

// Status is a snapshot for display.
type Status struct {
	Running   bool
	SessionID string
	User      string
	Cogs      int
	Commands  int
	Dropped   int64
}

// Runner connects the cog registry to Discord.
type Runner struct {
	registry   *cogs.Registry
	newSession SessionFactory
	timeout    time.Duration
	limiter    *CommandLimiter
	dedupe     *DedupeCache
	logs       chan LogLine
	dropped    atomic.Int64
	sessionID  atomic.Value // string
	secret     atomic.Value // string, the running token, scrubbed from output

	mu       sync.Mutex
	prefix   string
	session  Session
	user     string
	removers []func()
	done     chan struct{}
}

// NewRunner creates a runner. A nil factory uses NewDiscordSession.
func NewRunner(registry *cogs.Registry, cfg Config, factory SessionFactory) *Runner {
	if factory == nil {
		factory = NewDiscordSession
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = cogs.DefaultTimeout
	}
	if cfg.LogBuffer <= 0 {
		cfg.LogBuffer = 256
	}
	r := &Runner{
		registry:   registry,
		newSession: factory,
		timeout:    cfg.CommandTimeout,
		limiter:    NewCommandLimiter(cfg.CommandsPerMinute, cfg.CommandBurst),
		dedupe:     NewDedupeCache(dedupeTTL, dedupeMaxSize),
		logs:       make(chan LogLine, cfg.LogBuffer),
		prefix:     cfg.Prefix,
	}
	r.sessionID.Store("")
	r.secret.Store("")
	registry.SetLogger(r.emitCog)
	return r
}

// Logs is the runner's log stream. It is never closed; lines that do not
// fit in the buffer are dropped and counted.
func (r *Runner) Logs() <-chan LogLine { return r.logs }

// Start loads cogs and connects to Discord with token. The session stops
// when ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNoToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return ErrAlreadyRunning
	}

	sess, err := r.newSession(token)
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	r.sessionID.Store(sessionID)
	r.secret.Store(token)
	r.emit(slog.LevelInfo, SourceRunner, "Starting bot session "+sessionID)

	if err := r.registry.LoadAll(); err != nil {
		// Per-cog failures are already in the log stream.
		slog.Warn("bot: some cogs failed to load", "error", err)
	}

	removers := []func(){
		sess.AddHandler(func(_ *discordgo.Session, ev *discordgo.Ready) { r.onReady(ev) }),
		sess.AddHandler(func(_ *discordgo.Session, ev *discordgo.Disconnect) {
			r.emit(slog.LevelWarn, SourceClient, "Disconnected from gateway")
		}),
		sess.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) { r.HandleMessage(sess, ev) }),
	}

	if err := sess.Open(); err != nil {
		for _, rm := range removers {
			rm()
		}
		r.emit(slog.LevelError, SourceClient, "Login failed: "+err.Error())
		r.sessionID.Store("")
		r.secret.Store("")
		return fmt.Errorf("open discord session: %w", err)
	}

	done := make(chan struct{})
	r.session = sess
	r.removers = removers
	r.done = done

	go func() {
		select {
		case <-ctx.Done():
			if err := r.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
				slog.Warn("bot: stop on cancel failed", "error", err)
			}
		case <-done:
		}
	}()
	return nil
}

// Stop disconnects the current session.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ErrNotRunning
	}

	for _, rm := range r.removers {
		rm()
	}
	err := r.session.Close()
	close(r.done)

	r.emit(slog.LevelInfo, SourceRunner, "Bot stopped")
	r.session = nil
	r.removers = nil
	r.sessionID.Store("")
	r.secret.Store("")
	r.user = ""

	if err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// Running reports whether a session is open.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// SetPrefix changes the command prefix of a running or future session.
func (r *Runner) SetPrefix(prefix string) {
	if prefix == "" {
		return
	}
	r.mu.Lock()
	old := r.prefix
	r.prefix = prefix
	r.mu.Unlock()
	if old != prefix {
		r.emit(slog.LevelInfo, SourceRunner, fmt.Sprintf("Command prefix changed from %q to %q", old, prefix))
	}
}

// ReloadCog reloads one cog, loading it if it was not loaded yet.
func (r *Runner) ReloadCog(name string) error {
	if r.registry.IsLoaded(name) {
		return r.registry.Reload(name)
	}
	return r.registry.Load(name)
}

// ReloadCogs reloads every cog in the workspace.
func (r *Runner) ReloadCogs() error {
	return r.registry.ReloadAll()
}

// Status returns a snapshot of the runner state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	st := Status{
		Running:   r.session != nil,
		SessionID: r.sessionID.Load().(string),
		User:      r.user,
	}
	r.mu.Unlock()

	st.Cogs = len(r.registry.Loaded())
	st.Commands = len(r.registry.Commands())
	st.Dropped = r.dropped.Load()
	return st
}

func (r *Runner) onReady(ev *discordgo.Ready) {
	name := "unknown"
	if ev.User != nil {
		name = ev.User.String()
	}
	r.mu.Lock()
	r.user = name
	r.mu.Unlock()
	r.emit(slog.LevelInfo, SourceClient, "Connected as "+name)
}

// messageSender is the subset of Session used to reply.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// HandleMessage logs an incoming message and runs it if it is a command.
func (r *Runner) HandleMessage(sender messageSender, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if r.dedupe.IsDuplicate(m.ID) {
		return
	}
	r.emit(slog.LevelInfo, SourceClient, fmt.Sprintf("%s: %s", m.Author.Username, m.Content))

	r.mu.Lock()
	prefix := r.prefix
	r.mu.Unlock()

	inv, ok := ParseCommand(prefix, m.Content)
	if !ok {
		return
	}
	if !r.limiter.Allow(m.Author.ID) {
		r.emit(slog.LevelWarn, SourceCommands, fmt.Sprintf("Rate limited %s on command %q", m.Author.Username, inv.Command))
		if _, err := sender.ChannelMessageSend(m.ChannelID, "⏳ Slow down, try again in a moment."); err != nil {
			r.emit(slog.LevelError, SourceClient, "Send failed: "+err.Error())
		}
		return
	}
	inv.Author = m.Author.Username
	inv.AuthorID = m.Author.ID
	inv.ChannelID = m.ChannelID
	inv.GuildID = m.GuildID

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	replies, err := r.registry.Dispatch(ctx, inv)
	switch {
	case errors.Is(err, cogs.ErrUnknownCommand) && inv.Command == "help":
		replies = []string{helpText(prefix, r.registry.Commands())}
	case errors.Is(err, cogs.ErrUnknownCommand):
		r.emit(slog.LevelError, SourceCommands, fmt.Sprintf("Command %q is not found", inv.Command))
		return
	case err != nil:
		r.emit(slog.LevelError, SourceCommands, err.Error())
		replies = append(replies, "⚠️ Command failed. Check the bot log for details.")
	}

	secret := r.secret.Load().(string)
	for _, reply := range replies {
		for _, chunk := range chunkMessage(ScrubCredentials(reply, secret)) {
			if _, err := sender.ChannelMessageSend(m.ChannelID, chunk); err != nil {
				r.emit(slog.LevelError, SourceClient, "Send failed: "+err.Error())
				return
			}
		}
	}
}

func (r *Runner) emitCog(level slog.Level, source, msg string) {
	if source == "cogs" {
		source = SourceCommands
	}
	r.emit(level, source, msg)
}

// emit offers a line to the log stream without blocking and mirrors it to
// slog at debug level (the stream is what the shell prints). It must not
// take r.mu: Start and Stop call it while holding it.
func (r *Runner) emit(level slog.Level, source, msg string) {
	msg = ScrubCredentials(msg, r.secret.Load().(string))
	line := LogLine{
		Time:      time.Now(),
		Level:     level,
		Source:    source,
		Message:   msg,
		SessionID: r.sessionID.Load().(string),
	}
	slog.Debug("bot: "+msg, "level", level, "source", source, "session", line.SessionID)

	select {
	case r.logs <- line:
	default:
		r.dropped.Add(1)
	}
}
