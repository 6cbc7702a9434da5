package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cogman/internal/bot"
	"github.com/nextlevelbuilder/cogman/internal/cogs"
	"github.com/nextlevelbuilder/cogman/internal/config"
	"github.com/nextlevelbuilder/cogman/internal/store"
)

func runCmd() *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Decrypt the token and run the bot",
		Long: "Asks for the passphrase, opens the stored token and connects to Discord.\n" +
			"Cogs reload when their files change. While running, type \"help\" for console commands.\n" +
			"SIGHUP reloads every cog; Ctrl-C stops the bot.",
		Run: func(cmd *cobra.Command, args []string) {
			runBot(noWatch)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload cogs when files change")
	return cmd
}

func runBot(noWatch bool) {
	cfgPath := resolveConfigPath()
	cfg := loadConfig()
	v := openVault(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	present, err := v.Present(ctx)
	if err != nil {
		exitVaultError(err)
	}
	if !present {
		exitVaultError(store.ErrNotFound)
	}
	pass, err := readSecret("Passphrase", "Unlocks the bot token at "+v.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	token, err := v.Load(ctx, pass)
	if err != nil {
		exitVaultError(err)
	}

	ws := openWorkspace(cfg)
	if err := ws.Ensure(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create cogs dir: %s\n", err)
		os.Exit(1)
	}
	reg := cogs.NewRegistry(ws, commandTimeout(cfg), nil)
	runner := bot.NewRunner(reg, bot.Config{
		Prefix:            cfg.Bot.Prefix,
		CommandTimeout:    commandTimeout(cfg),
		LogBuffer:         cfg.Bot.LogBuffer,
		CommandsPerMinute: cfg.Bot.CommandsPerMinute,
		CommandBurst:      cfg.Bot.CommandBurst,
	}, nil)

	var printer sync.WaitGroup
	printCtx, stopPrinter := context.WithCancel(context.Background())
	printer.Add(1)
	go func() {
		defer printer.Done()
		printLogs(printCtx, os.Stdout, runner.Logs(), term256())
	}()
	finish := func() {
		stopPrinter()
		printer.Wait()
		if n := runner.Status().Dropped; n > 0 {
			fmt.Fprintf(os.Stderr, "(%d log lines dropped)\n", n)
		}
	}

	if err := runner.Start(ctx, token); err != nil {
		finish()
		fmt.Fprintln(os.Stderr, formatBotError(err))
		os.Exit(1)
	}

	if cfg.Bot.WatchCogs && !noWatch {
		if w, err := cogs.NewWatcher(ws, reg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cog watcher unavailable: %s\n", err)
		} else if err := w.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cog watcher unavailable: %s\n", err)
		} else {
			defer w.Stop()
		}
	}

	if cw, err := config.NewWatcher(cfgPath); err == nil {
		cw.OnChange(func(c *config.Config) { runner.SetPrefix(c.Bot.Prefix) })
		if err := cw.Start(ctx); err == nil {
			defer cw.Stop()
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := runner.ReloadCogs(); err != nil {
					fmt.Fprintf(os.Stderr, "Reload: %s\n", err)
				}
			}
		}
	}()

	if interactive() {
		go runConsole(ctx, os.Stdin, os.Stdout, runner, stop)
	}

	<-ctx.Done()
	if err := runner.Stop(); err != nil && !errors.Is(err, bot.ErrNotRunning) {
		fmt.Fprintf(os.Stderr, "Error stopping bot: %s\n", err)
	}
	finish()
}

// consoleRunner is the part of bot.Runner the console drives.
type consoleRunner interface {
	ReloadCog(name string) error
	ReloadCogs() error
	SetPrefix(prefix string)
	Status() bot.Status
}

// runConsole reads control commands from in until ctx ends or in closes.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, r consoleRunner, stop func()) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if quit := consoleCommand(out, r, sc.Text()); quit {
			stop()
			return
		}
	}
}

// consoleCommand runs one console line and reports whether the bot should stop.
func consoleCommand(out io.Writer, r consoleRunner, line string) bool {
	argv, err := shellwords.Parse(line)
	if err != nil {
		fmt.Fprintf(out, "! %s\n", err)
		return false
	}
	if len(argv) == 0 {
		return false
	}

	switch strings.ToLower(argv[0]) {
	case "reload", "r":
		if len(argv) == 1 {
			err = r.ReloadCogs()
		} else {
			var errs []error
			for _, name := range argv[1:] {
				errs = append(errs, r.ReloadCog(name))
			}
			err = errors.Join(errs...)
		}
		if err != nil {
			fmt.Fprintf(out, "! %s\n", err)
		}
	case "prefix":
		if len(argv) != 2 {
			fmt.Fprintln(out, "usage: prefix <new-prefix>")
			return false
		}
		r.SetPrefix(argv[1])
	case "status", "s":
		st := r.Status()
		fmt.Fprintf(out, "running=%t user=%s session=%s cogs=%d commands=%d dropped=%d\n",
			st.Running, st.User, st.SessionID, st.Cogs, st.Commands, st.Dropped)
	case "stop", "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(out, "commands: reload [cog...], prefix <p>, status, stop")
	default:
		fmt.Fprintf(out, "! unknown console command %q (try help)\n", argv[0])
	}
	return false
}
