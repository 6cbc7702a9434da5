package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nextlevelbuilder/cogman/internal/cogs"
	"github.com/nextlevelbuilder/cogman/internal/config"
)

func cogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cogs",
		Aliases: []string{"cog"},
		Short:   "Create, edit and check command cogs",
	}
	cmd.AddCommand(cogsListCmd())
	cmd.AddCommand(cogsNewCmd())
	cmd.AddCommand(cogsShowCmd())
	cmd.AddCommand(cogsEditCmd())
	cmd.AddCommand(cogsRemoveCmd())
	cmd.AddCommand(cogsRenameCmd())
	cmd.AddCommand(cogsCheckCmd())
	return cmd
}

type cogListing struct {
	cogs.Info
	Commands []string `json:"commands"`
	Error    string   `json:"error,omitempty"`
}

func cogsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cogs in the workspace",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)
			infos, err := ws.List()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}

			reg := cogs.NewRegistry(ws, commandTimeout(cfg), quietLog)
			listing := make([]cogListing, 0, len(infos))
			for _, info := range infos {
				l := cogListing{Info: info, Commands: []string{}}
				cmds, err := reg.Check(info.Name)
				if err != nil {
					l.Error = err.Error()
				}
				for _, c := range cmds {
					l.Commands = append(l.Commands, c.Name)
				}
				listing = append(listing, l)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(listing, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(listing) == 0 {
				fmt.Printf("No cogs in %s. Create one with: cogman cogs new <name>\n", ws.Dir())
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tCOMMANDS\tMODIFIED\n")
			for _, l := range listing {
				commands := strings.Join(l.Commands, ", ")
				if l.Error != "" {
					commands = "(error)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Name, commands, l.ModTime.Format(time.DateTime))
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func cogsNewCmd() *cobra.Command {
	var command string
	var edit bool
	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create a cog from the template",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)

			var raw string
			if len(args) > 0 {
				raw = args[0]
			} else if interactive() {
				var err error
				raw, err = promptString("Cog name (letters, digits, underscores)", "", validCogInput)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
			}

			name := cogs.NormalizeName(raw)
			if name == "" {
				fmt.Fprintln(os.Stderr, "Error: "+cogs.ErrEmptyName.Error())
				os.Exit(1)
			}
			if name != raw {
				fmt.Printf("Using cog name %q\n", name)
			}

			path, err := ws.Create(name, command)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Created %s\n", path)

			if edit {
				editCog(cfg, ws, name)
			}
		},
	}
	cmd.Flags().StringVar(&command, "command", "", "command name (default: lowercased cog name)")
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "open the new cog in the editor")
	return cmd
}

func cogsShowCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Print a cog's source with syntax highlighting",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)

			src, err := ws.Read(args[0])
			if err != nil {
				exitCogError(err)
			}
			if plain || !term256() {
				fmt.Print(src)
				return
			}
			if err := cogs.HighlightNumbered(os.Stdout, src, cfg.Editor.Style); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print without colours or line numbers")
	return cmd
}

func cogsEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [name]",
		Short: "Open a cog in your editor, then check it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)
			if !ws.Exists(args[0]) {
				exitCogError(fmt.Errorf("%w: %s", cogs.ErrNotFound, args[0]))
			}
			editCog(cfg, ws, args[0])
		},
	}
}

func cogsRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm [name]",
		Aliases: []string{"delete"},
		Short:   "Delete a cog",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)
			if !ws.Exists(args[0]) {
				exitCogError(fmt.Errorf("%w: %s", cogs.ErrNotFound, args[0]))
			}
			if !confirmOrYes(yes, fmt.Sprintf("Delete cog %s?", args[0])) {
				fmt.Println("Cancelled.")
				return
			}
			if err := ws.Delete(args[0]); err != nil {
				exitCogError(err)
			}
			fmt.Printf("Deleted cog %s\n", args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func cogsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "mv [old] [new]",
		Aliases: []string{"rename"},
		Short:   "Rename a cog",
		Args:    cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)
			if err := ws.Rename(args[0], args[1]); err != nil {
				exitCogError(err)
			}
			fmt.Printf("Renamed cog %s to %s\n", args[0], args[1])
		},
	}
}

func cogsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [name...]",
		Short: "Compile cogs and list the commands they register",
		Long:  "Runs each cog's top level in a scratch runtime. With no names, checks every cog.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ws := openWorkspace(cfg)

			names := args
			if len(names) == 0 {
				infos, err := ws.List()
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				for _, info := range infos {
					names = append(names, info.Name)
				}
			}
			if len(names) == 0 {
				fmt.Println("No cogs to check.")
				return
			}

			reg := cogs.NewRegistry(ws, commandTimeout(cfg), quietLog)
			if failed := checkCogs(reg, names); failed > 0 {
				fmt.Fprintf(os.Stderr, "%d of %d cogs failed.\n", failed, len(names))
				os.Exit(1)
			}
		},
	}
}

// checkCogs prints one line per cog and returns the failure count.
func checkCogs(reg *cogs.Registry, names []string) int {
	failed := 0
	for _, name := range names {
		cmds, err := reg.Check(name)
		if err != nil {
			failed++
			fmt.Printf("  %-20s FAIL  %s\n", name, err)
			continue
		}
		list := make([]string, len(cmds))
		for i, c := range cmds {
			list[i] = c.Name
		}
		fmt.Printf("  %-20s OK    %s\n", name, strings.Join(list, ", "))
	}
	return failed
}

// editCog runs the editor on a cog and checks it afterwards.
func editCog(cfg *config.Config, ws *cogs.Workspace, name string) {
	argv, err := editorCommand(cfg.Editor.Command, os.Getenv("VISUAL"), os.Getenv("EDITOR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	c := exec.Command(argv[0], append(argv[1:], ws.Path(name))...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Editor exited with error: %s\n", err)
		os.Exit(1)
	}

	reg := cogs.NewRegistry(ws, commandTimeout(cfg), quietLog)
	if checkCogs(reg, []string{name}) > 0 {
		os.Exit(1)
	}
}

// editorCommand picks the editor: config first, then $VISUAL, then $EDITOR,
// then vi. The value is split like a shell would, so "code --wait" works.
func editorCommand(configured, visual, editor string) ([]string, error) {
	raw := "vi"
	for _, c := range []string{configured, visual, editor} {
		if strings.TrimSpace(c) != "" {
			raw = c
			break
		}
	}
	argv, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse editor command %q: %w", raw, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty editor command")
	}
	return argv, nil
}

func commandTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Bot.CommandTimeoutMs) * time.Millisecond
}

// quietLog drops cog log() output during checks.
func quietLog(_ slog.Level, _, _ string) {}

// term256 reports whether stdout is a colour terminal.
func term256() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func exitCogError(err error) {
	switch {
	case errors.Is(err, cogs.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintln(os.Stderr, "List cogs with: cogman cogs list")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
