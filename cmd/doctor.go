package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cogman/internal/bot"
	"github.com/nextlevelbuilder/cogman/internal/cogs"
	"github.com/nextlevelbuilder/cogman/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("cogman doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	cfg.CogsDir = config.ExpandHome(cfg.CogsDir)
	cfg.Token.File = config.ExpandHome(cfg.Token.File)

	// Token
	fmt.Println()
	fmt.Println("  Token:")
	v := openVault(cfg)
	fmt.Printf("    %-12s %s\n", "Location:", v.Location())
	present, err := v.Present(context.Background())
	switch {
	case err != nil:
		fmt.Printf("    %-12s error: %s\n", "Status:", err)
	case present:
		fmt.Printf("    %-12s saved (run `cogman token check` to test the passphrase)\n", "Status:")
	default:
		fmt.Printf("    %-12s not set\n", "Status:")
	}

	// Bot
	fmt.Println()
	fmt.Println("  Bot:")
	fmt.Printf("    %-12s %q\n", "Prefix:", cfg.Bot.Prefix)
	fmt.Printf("    %-12s %s\n", "Rate limit:", rateLimitSummary(cfg.Bot.CommandsPerMinute, cfg.Bot.CommandBurst))

	// Cogs
	fmt.Println()
	ws := openWorkspace(cfg)
	fmt.Printf("  Cogs:     %s", ws.Dir())
	if _, err := os.Stat(ws.Dir()); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
		infos, _ := ws.List()
		reg := cogs.NewRegistry(ws, commandTimeout(cfg), quietLog)
		for _, info := range infos {
			status := "OK"
			if _, err := reg.Check(info.Name); err != nil {
				status = "FAIL: " + err.Error()
			}
			fmt.Printf("    %-20s %s\n", info.Name, status)
		}
	}

	// Editor
	fmt.Println()
	fmt.Println("  External Tools:")
	if argv, err := editorCommand(cfg.Editor.Command, os.Getenv("VISUAL"), os.Getenv("EDITOR")); err != nil {
		fmt.Printf("    %-12s %s\n", "editor:", err)
	} else {
		checkBinary(argv[0])
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}

// rateLimitSummary describes the per-user command limit the bot would apply.
func rateLimitSummary(perMinute, burst int) string {
	if !bot.NewCommandLimiter(perMinute, burst).Enabled() {
		return "off"
	}
	if burst <= 0 {
		return fmt.Sprintf("%d commands/min per user, default burst", perMinute)
	}
	return fmt.Sprintf("%d commands/min per user, burst %d", perMinute, burst)
}
