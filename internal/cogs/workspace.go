package cogs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrExists   = errors.New("cog already exists")
	ErrNotFound = errors.New("cog not found")
)

// Info describes a cog source file.
type Info struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Workspace is the directory of cog source files.
type Workspace struct {
	dir string
}

func NewWorkspace(dir string) *Workspace {
	return &Workspace{dir: dir}
}

func (w *Workspace) Dir() string { return w.dir }

// Ensure creates the cogs directory if needed.
func (w *Workspace) Ensure() error {
	return os.MkdirAll(w.dir, 0755)
}

// Path returns the source path for a cog name.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name+Ext)
}

// List returns all cogs sorted by name. A missing directory yields no cogs.
func (w *Workspace) List() ([]Info, error) {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cogs dir: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), Ext)
		if ValidateName(name) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:    name,
			Path:    filepath.Join(w.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists reports whether a cog source file exists.
func (w *Workspace) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	_, err := os.Stat(w.Path(name))
	return err == nil
}

// Read returns a cog's source.
func (w *Workspace) Read(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(w.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read cog %s: %w", name, err)
	}
	return string(data), nil
}

// Write saves a cog's source, creating or replacing it.
func (w *Workspace) Write(name, source string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := w.Ensure(); err != nil {
		return fmt.Errorf("create cogs dir: %w", err)
	}
	if err := os.WriteFile(w.Path(name), []byte(source), 0644); err != nil {
		return fmt.Errorf("write cog %s: %w", name, err)
	}
	return nil
}

// Create writes a new cog from the template with one command.
// An empty command is derived from the cog name with DefaultCommand.
func (w *Workspace) Create(name, command string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		command = DefaultCommand(name)
	}
	if err := ValidateCommand(command); err != nil {
		return "", err
	}
	if w.Exists(name) {
		return "", fmt.Errorf("%w: %s", ErrExists, name)
	}

	if err := w.Write(name, Template(name, command)); err != nil {
		return "", err
	}
	return w.Path(name), nil
}

// Delete removes a cog source file.
func (w *Workspace) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(w.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// Rename moves a cog to a new name. The target must not exist.
func (w *Workspace) Rename(oldName, newName string) error {
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if !w.Exists(oldName) {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if w.Exists(newName) {
		return fmt.Errorf("%w: %s", ErrExists, newName)
	}
	return os.Rename(w.Path(oldName), w.Path(newName))
}

// Template returns the source of a new cog with a single command.
func Template(name, command string) string {
	return fmt.Sprintf(`// %s cog
cog.command(%q, "Replies when %s is used", function (ctx) {
  ctx.reply("Command %s executed!");
});
`, name, command, command, command)
}
