package cogs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

var (
	ErrAlreadyLoaded  = errors.New("cog already loaded")
	ErrNotLoaded      = errors.New("cog not loaded")
	ErrUnknownCommand = errors.New("unknown command")
	ErrCommandTimeout = errors.New("command timed out")
	ErrCommandClash   = errors.New("command already registered")
)

// DefaultTimeout bounds cog top-level execution and each command call.
const DefaultTimeout = 5 * time.Second

// LogFunc receives cog lifecycle events and lines cogs print with log().
type LogFunc func(level slog.Level, source, msg string)

// Invocation is one command call coming from chat.
type Invocation struct {
	Command   string
	Args      []string
	Content   string
	Author    string
	AuthorID  string
	ChannelID string
	GuildID   string
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cog         string `json:"cog"`
}

type command struct {
	CommandInfo
	fn  goja.Callable
	cog *cog
}

// cog is one loaded script. goja runtimes are not goroutine-safe, so every
// call into vm holds mu.
type cog struct {
	name     string
	vm       *goja.Runtime
	mu       sync.Mutex
	commands map[string]*command
	order    []string
}

// Registry holds the loaded cogs and routes commands to them.
type Registry struct {
	ws      *Workspace
	timeout time.Duration
	logf    LogFunc

	mu       sync.RWMutex
	cogs     map[string]*cog
	commands map[string]*command
}

// NewRegistry creates a registry reading sources from ws.
// A nil logf logs through slog.
func NewRegistry(ws *Workspace, timeout time.Duration, logf LogFunc) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logf == nil {
		logf = func(level slog.Level, source, msg string) {
			slog.Log(context.Background(), level, msg, "source", source)
		}
	}
	return &Registry{
		ws:       ws,
		timeout:  timeout,
		logf:     logf,
		cogs:     make(map[string]*cog),
		commands: make(map[string]*command),
	}
}

// SetLogger replaces the log sink.
func (r *Registry) SetLogger(logf LogFunc) {
	if logf == nil {
		return
	}
	r.mu.Lock()
	r.logf = logf
	r.mu.Unlock()
}

func (r *Registry) log(level slog.Level, msg string) {
	r.mu.RLock()
	logf := r.logf
	r.mu.RUnlock()
	logf(level, "cogs", msg)
}

// LoadAll loads every cog in the workspace. Failures are logged and joined
// into the returned error; the other cogs still load.
func (r *Registry) LoadAll() error {
	infos, err := r.ws.List()
	if err != nil {
		return err
	}

	var errs []error
	for _, info := range infos {
		if r.IsLoaded(info.Name) {
			continue
		}
		if err := r.Load(info.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load compiles and registers a cog that is not yet loaded.
func (r *Registry) Load(name string) error {
	if r.IsLoaded(name) {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	if err := r.install(name, false); err != nil {
		r.log(slog.LevelError, fmt.Sprintf("Failed to load cog %s: %v", name, err))
		return err
	}
	r.log(slog.LevelInfo, "Loaded cog "+name)
	return nil
}

// Reload recompiles a loaded cog. If the new source fails, the previous
// version stays active.
func (r *Registry) Reload(name string) error {
	if !r.IsLoaded(name) {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if err := r.install(name, true); err != nil {
		r.log(slog.LevelError, fmt.Sprintf("Failed to reload cog %s: %v", name, err))
		return err
	}
	r.log(slog.LevelInfo, "Reloaded cog "+name)
	return nil
}

// ReloadAll reloads loaded cogs and loads new ones found in the workspace.
// Cogs whose files disappeared are unloaded.
func (r *Registry) ReloadAll() error {
	infos, err := r.ws.List()
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(infos))
	var errs []error
	for _, info := range infos {
		present[info.Name] = true
		var err error
		if r.IsLoaded(info.Name) {
			err = r.Reload(info.Name)
		} else {
			err = r.Load(info.Name)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range r.Loaded() {
		if !present[name] {
			r.Unload(name)
		}
	}
	return errors.Join(errs...)
}

// Unload removes a cog and its commands.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	c, ok := r.cogs[name]
	if ok {
		r.removeLocked(c)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	r.log(slog.LevelInfo, "Unloaded cog "+name)
	return nil
}

// Check compiles a cog without registering it and returns its commands.
func (r *Registry) Check(name string) ([]CommandInfo, error) {
	c, err := r.compile(name)
	if err != nil {
		return nil, err
	}
	return c.infos(), nil
}

func (r *Registry) install(name string, replace bool) error {
	c, err := r.compile(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.cogs[name]; ok && !replace {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, old.name)
	}
	for cmdName := range c.commands {
		if existing, ok := r.commands[cmdName]; ok && existing.Cog != name {
			return fmt.Errorf("%w: %q is provided by cog %s", ErrCommandClash, cmdName, existing.Cog)
		}
	}

	if old, ok := r.cogs[name]; ok {
		r.removeLocked(old)
	}
	r.cogs[name] = c
	for cmdName, cmd := range c.commands {
		r.commands[cmdName] = cmd
	}
	return nil
}

func (r *Registry) removeLocked(c *cog) {
	for cmdName := range c.commands {
		if cur, ok := r.commands[cmdName]; ok && cur.cog == c {
			delete(r.commands, cmdName)
		}
	}
	delete(r.cogs, c.name)
}

// compile runs a cog's top level in a fresh runtime, collecting the
// commands it registers.
func (r *Registry) compile(name string) (*cog, error) {
	src, err := r.ws.Read(name)
	if err != nil {
		return nil, err
	}

	prog, err := goja.Compile(name+Ext, src, true)
	if err != nil {
		return nil, fmt.Errorf("compile cog %s: %w", name, err)
	}

	c := &cog{
		name:     name,
		vm:       goja.New(),
		commands: make(map[string]*command),
	}
	if err := r.bindGlobals(c); err != nil {
		return nil, fmt.Errorf("init cog %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.run(r.timeout, func() (goja.Value, error) { return c.vm.RunProgram(prog) }); err != nil {
		return nil, fmt.Errorf("run cog %s: %w", name, err)
	}
	if len(c.commands) == 0 {
		return nil, fmt.Errorf("cog %s registers no commands", name)
	}
	return c, nil
}

func (r *Registry) bindGlobals(c *cog) error {
	vm := c.vm
	api := vm.NewObject()
	if err := api.Set("name", c.name); err != nil {
		return err
	}

	// cog.command(name, [description], handler)
	err := api.Set("command", func(call goja.FunctionCall) goja.Value {
		cmdName := strings.ToLower(strings.TrimSpace(call.Argument(0).String()))
		desc := ""
		handler := call.Argument(1)
		if len(call.Arguments) >= 3 {
			desc = call.Argument(1).String()
			handler = call.Argument(2)
		}

		if err := ValidateCommand(cmdName); err != nil {
			panic(vm.NewTypeError("%s", err.Error()))
		}
		fn, ok := goja.AssertFunction(handler)
		if !ok {
			panic(vm.NewTypeError("cog.command: handler for %q is not a function", cmdName))
		}
		if _, dup := c.commands[cmdName]; dup {
			panic(vm.NewTypeError("cog.command: %q registered twice", cmdName))
		}

		c.commands[cmdName] = &command{
			CommandInfo: CommandInfo{Name: cmdName, Description: desc, Cog: c.name},
			fn:          fn,
			cog:         c,
		}
		c.order = append(c.order, cmdName)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	if err := vm.Set("cog", api); err != nil {
		return err
	}

	return vm.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		r.mu.RLock()
		logf := r.logf
		r.mu.RUnlock()
		logf(slog.LevelInfo, "cogs."+c.name, strings.Join(parts, " "))
		return goja.Undefined()
	})
}

// run executes fn with an interrupt armed after timeout. Caller holds c.mu.
func (c *cog) run(timeout time.Duration, fn func() (goja.Value, error)) (goja.Value, error) {
	fired := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		c.vm.Interrupt(ErrCommandTimeout)
		close(fired)
	})
	v, err := fn()
	if !timer.Stop() {
		// The interrupt may land after fn returned; wait for it so the
		// clear below is not undone.
		<-fired
	}
	c.vm.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return nil, fmt.Errorf("%w after %s", ErrCommandTimeout, timeout)
	}
	return v, err
}

func (c *cog) infos() []CommandInfo {
	out := make([]CommandInfo, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.commands[n].CommandInfo)
	}
	return out
}

// Dispatch runs the command named in inv and returns the replies it made,
// in order. A string returned by the handler counts as a final reply.
func (r *Registry) Dispatch(ctx context.Context, inv Invocation) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	cmd, ok := r.commands[strings.ToLower(inv.Command)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, inv.Command)
	}

	c := cmd.cog
	c.mu.Lock()
	defer c.mu.Unlock()

	var replies []string
	vm := c.vm
	cctx := vm.NewObject()
	cctx.Set("command", cmd.Name)
	args := make([]interface{}, len(inv.Args))
	for i, a := range inv.Args {
		args[i] = a
	}
	cctx.Set("args", vm.NewArray(args...))
	cctx.Set("content", inv.Content)
	cctx.Set("author", inv.Author)
	cctx.Set("authorId", inv.AuthorID)
	cctx.Set("channel", inv.ChannelID)
	cctx.Set("guild", inv.GuildID)
	cctx.Set("reply", func(call goja.FunctionCall) goja.Value {
		replies = append(replies, call.Argument(0).String())
		return goja.Undefined()
	})

	timeout := r.timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}

	v, err := c.run(timeout, func() (goja.Value, error) { return cmd.fn(goja.Undefined(), cctx) })
	if err != nil {
		return replies, fmt.Errorf("command %s (cog %s): %w", cmd.Name, c.name, err)
	}
	if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		replies = append(replies, v.String())
	}
	return replies, nil
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CommandInfo, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd.CommandInfo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Loaded returns the names of loaded cogs, sorted.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.cogs))
	for name := range r.cogs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsLoaded reports whether a cog is loaded.
func (r *Registry) IsLoaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cogs[name]
	return ok
}
