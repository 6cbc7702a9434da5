package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cogman/internal/config"
	"github.com/nextlevelbuilder/cogman/internal/store"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configValidateCmd())
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			data, _ := json.MarshalIndent(cfg, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()
			_, err := config.Load(cfgPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid config: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Config at %s is valid.\n", cfgPath)
		},
	}
}

func configInitCmd() *cobra.Command {
	var force, defaults bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long:  "Writes a config file, asking for the main settings unless --defaults is given.",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(os.Stderr, "Config already exists at %s (use --force to overwrite).\n", cfgPath)
				os.Exit(1)
			}

			cfg := config.Default()
			if !defaults && interactive() {
				if err := promptConfig(cfg); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid config: %s\n", err)
				os.Exit(1)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving config: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Config written to %s\n", cfgPath)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write defaults without prompting")
	return cmd
}

func promptConfig(cfg *config.Config) error {
	var err error
	if cfg.CogsDir, err = promptString("Cogs directory", cfg.CogsDir, nil); err != nil {
		return err
	}
	if cfg.Bot.Prefix, err = promptString("Command prefix", cfg.Bot.Prefix, validPrefix); err != nil {
		return err
	}
	backend, err := promptSelect("Token storage", []SelectOption[string]{
		{Label: "Encrypted file", Value: store.BackendFile},
		{Label: "OS keyring (still encrypted)", Value: store.BackendKeyring},
	}, 0)
	if err != nil {
		return err
	}
	cfg.Token.Backend = backend
	if backend == store.BackendFile {
		if cfg.Token.File, err = promptString("Token file", cfg.Token.File, nil); err != nil {
			return err
		}
	}
	if cfg.Bot.WatchCogs, err = promptConfirm("Reload cogs when their files change?", cfg.Bot.WatchCogs); err != nil {
		return err
	}
	return nil
}
