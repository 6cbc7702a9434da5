package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cogman/internal/store"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the encrypted bot token",
	}
	cmd.AddCommand(tokenSetCmd())
	cmd.AddCommand(tokenCheckCmd())
	cmd.AddCommand(tokenClearCmd())
	cmd.AddCommand(tokenPathCmd())
	return cmd
}

func tokenSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Encrypt and save the bot token",
		Long: "Prompts for the bot token and a passphrase, then stores the token\n" +
			"encrypted. Without a terminal, reads token, passphrase and confirmation\n" +
			"as three lines on stdin.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			v := openVault(cfg)

			token, err := readSecret("Bot token", "From the Discord developer portal, Bot tab")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			pass, err := readSecret("Passphrase", "Needed every time the bot starts")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			again, err := readSecret("Confirm passphrase", "")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if pass != again {
				fmt.Fprintln(os.Stderr, "Passphrases do not match.")
				os.Exit(1)
			}
			if pass == "" {
				fmt.Fprintln(os.Stderr, "Warning: empty passphrase; anyone with the token file can open it.")
			}

			if err := v.Save(context.Background(), token, pass); err != nil {
				exitVaultError(err)
			}
			fmt.Printf("Token saved to %s\n", v.Location())
		},
	}
}

func tokenCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the passphrase opens the stored token",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			v := openVault(cfg)
			ctx := context.Background()

			ok, err := v.Present(ctx)
			if err != nil {
				exitVaultError(err)
			}
			if !ok {
				exitVaultError(store.ErrNotFound)
			}

			pass, err := readSecret("Passphrase", "")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if err := v.Check(ctx, pass); err != nil {
				exitVaultError(err)
			}
			fmt.Println("Token OK.")
		},
	}
}

func tokenClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored token",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			v := openVault(cfg)
			ctx := context.Background()

			ok, err := v.Present(ctx)
			if err != nil {
				exitVaultError(err)
			}
			if !ok {
				fmt.Println("No token stored.")
				return
			}
			if !confirmOrYes(yes, fmt.Sprintf("Delete the token at %s?", v.Location())) {
				fmt.Println("Cancelled.")
				return
			}
			if err := v.Clear(ctx); err != nil {
				exitVaultError(err)
			}
			fmt.Println("Token deleted.")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func tokenPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the token is stored",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			fmt.Println(openVault(cfg).Location())
		},
	}
}
