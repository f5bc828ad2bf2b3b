package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Veritas configuration",
	Long: `Manage Veritas configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (VERITAS_*, then GEMINI_API_KEY, JWT_SECRET, ...)
3. Config file (~/.veritas/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file and env vars are merged. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(maskSecrets(*cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.veritas/config.yaml with every available option.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath := filepath.Join(home, ".veritas", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  veritas config show\n")
		return nil
	},
}

const configHeader = `# Veritas configuration file
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (VERITAS_*, e.g. VERITAS_SERVER_ADDR)
#   3. This config file
#   4. Built-in defaults
#
# Keep API keys out of this file; export them instead:
#   export GEMINI_API_KEY=...
#   export GOOGLE_FACT_CHECK_API_KEY=...
#   export GOOGLE_SEARCH_API_KEY=... GOOGLE_SEARCH_ENGINE_ID=...
#   export JWT_SECRET=...

`

// writeDefaultConfig refuses to overwrite an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'veritas config show' to view it, or delete it first to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	data := append([]byte(configHeader), yamlData...)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

const masked = "********"

func maskSecrets(cfg model.Config) model.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = masked
		}
	}
	mask(&cfg.Auth.JWTSecret)
	mask(&cfg.Claims.APIKey)
	mask(&cfg.Search.APIKey)
	mask(&cfg.LLM.GeminiAPIKey)
	mask(&cfg.LLM.OpenAIAPIKey)
	mask(&cfg.LLM.AnthropicAPIKey)
	mask(&cfg.Media.S3.AccessKeyID)
	mask(&cfg.Media.S3.SecretAccessKey)
	return cfg
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
