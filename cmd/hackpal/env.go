package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/pkg/env"
	"github.com/spf13/cobra"
)

var (
	showSecrets bool
	writeEnv    bool
	forceWrite  bool
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the effective configuration",
	Long:  `Prints the configuration HackPal would run with as .env content. With --write it is saved to the runtime directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}

		mask := !showSecrets && !writeEnv
		var sections []string
		for _, c := range []any{
			config.NewAppConfig(ctx),
			config.NewProviderConfig(ctx),
			config.NewRAGConfig(ctx),
		} {
			out, err := env.MarshalEnv(c, mask)
			if err != nil {
				return err
			}
			sections = append(sections, out)
		}
		content := strings.Join(sections, "\n")

		if !writeEnv {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}

		path := filepath.Join(config.GetRuntimePath(), ".env")
		if err := writeEnvFile(path, content, forceWrite); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration saved to %s\n", path)
		return nil
	},
}

func writeEnvFile(path, content string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf(".env file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(content), 0600)
}

func init() {
	envCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print secret values unmasked")
	envCmd.Flags().BoolVar(&writeEnv, "write", false, "save the configuration to the runtime .env file")
	envCmd.Flags().BoolVar(&forceWrite, "force", false, "overwrite an existing .env file")
	rootCmd.AddCommand(envCmd)
}
