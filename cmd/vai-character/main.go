package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vai-character",
		Short:         "Talk to conversational characters from the terminal or an MCP host",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().String("config", "", "path to vai-character.yaml")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration; existing variables win")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("env-file")
		if err != nil || path == "" {
			return err
		}
		return loadEnvFile(path)
	}
	root.AddCommand(chatCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(versionCmd())
	return root
}

// loadEnvFile is a no-op when path does not exist.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}
