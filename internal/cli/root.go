package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is overridden at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "Veritas - credibility scoring for news text, links and images",
	Long: `Veritas scores how credible a piece of news content looks.

It combines a keyword and domain heuristic, published fact-check ratings,
web citations and a generative model verdict into one 0-100 score, and
keeps every analysis for community votes and moderation.

A score is a signal for review, not a ruling on truth.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Veritas.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "veritas %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.veritas/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.veritas")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// legacyEnv maps config keys to the unprefixed variables deployments already set.
// VERITAS_* wins when both are present.
var legacyEnv = map[string]string{
	"llm.gemini_api_key":    "GEMINI_API_KEY",
	"llm.openai_api_key":    "OPENAI_API_KEY",
	"llm.anthropic_api_key": "ANTHROPIC_API_KEY",
	"llm.ollama_base_url":   "OLLAMA_BASE_URL",
	"claims.api_key":        "GOOGLE_FACT_CHECK_API_KEY",
	"search.api_key":        "GOOGLE_SEARCH_API_KEY",
	"search.engine_id":      "GOOGLE_SEARCH_ENGINE_ID",
	"auth.jwt_secret":       "JWT_SECRET",
	"store.dsn":             "DATABASE_URL",
	"http.http_proxy":       "HTTP_PROXY",
	"http.https_proxy":      "HTTPS_PROXY",
	"http.no_proxy":         "NO_PROXY",

	"media.s3.access_key_id":     "AWS_ACCESS_KEY_ID",
	"media.s3.secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"media.s3.region":            "AWS_REGION",

	// Keys without a default only reach env through an explicit binding
	"media.dir":              "",
	"media.s3.endpoint":      "",
	"media.s3.bucket":        "",
	"media.s3.prefix":        "",
	"cache.disk_dir":         "",
	"claims.language_code":   "",
	"llm.gemini_base_url":    "",
	"llm.openai_base_url":    "",
	"llm.anthropic_base_url": "",
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then environment variables.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(cfg); err != nil {
		return nil, err
	}

	viper.SetEnvPrefix("VERITAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range legacyEnv {
		prefixed := "VERITAS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		names := []string{key, prefixed}
		if env != "" {
			names = append(names, env)
		}
		if err := viper.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// PORT only applies when nothing more specific chose an address
	if port := os.Getenv("PORT"); port != "" && os.Getenv("VERITAS_SERVER_ADDR") == "" && !viper.InConfig("server") {
		cfg.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}

	return cfg, nil
}

// registerDefaults flattens the default config into viper so that env
// overrides reach every key, including ones absent from the config file.
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults("", tree)
	return nil
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// newLogger builds the process logger. Servers log JSON, commands log text.
func newLogger(jsonOutput bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
