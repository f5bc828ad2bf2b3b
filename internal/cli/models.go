package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/spf13/cobra"
)

var probeTimeout time.Duration

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the generative model fallback chain",
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every configured model candidate",
	Long: `Check first asks each provider whether its endpoint is reachable, then sends a one-word prompt to each candidate of the fallback chain,
in order, and reports which ones answer. Candidates are probed independently,
so a failure does not stop the remaining probes.`,
	Args: cobra.NoArgs,
	RunE: runModelsCheck,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsCheckCmd)

	modelsCheckCmd.Flags().DurationVar(&probeTimeout, "timeout", time.Minute, "timeout for all probes")
}

func runModelsCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(false)

	client := util.NewHTTPClient(util.ClientOptions{
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	})
	chain := llm.ChainFromConfig(cfg.LLM, client, logger)
	if len(chain.Candidates()) == 0 {
		return fmt.Errorf("no model candidates are usable; check llm.candidates and the provider API keys")
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	w := cmd.OutOrStdout()
	checkProviders(ctx, w, chain.Candidates())
	if ok := reportProbes(w, cfg.LLM, chain.Probe(ctx)); ok == 0 {
		return fmt.Errorf("no model candidate answered")
	}
	return nil
}

// checkProviders asks each distinct provider once whether its endpoint
// answers and returns how many did.
func checkProviders(ctx context.Context, w io.Writer, candidates []llm.Candidate) int {
	seen := make(map[string]bool)
	reachable := 0
	for _, c := range candidates {
		name := c.Provider.Name()
		if seen[name] {
			continue
		}
		seen[name] = true
		if c.Provider.IsAvailable(ctx) {
			reachable++
			fmt.Fprintf(w, "✓ provider %s: reachable\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ provider %s: unreachable\n", name)
	}
	return reachable
}

// reportProbes prints one line per probe and returns how many succeeded.
// Configured candidates the factory skipped are listed as unavailable.
func reportProbes(w io.Writer, cfg model.LLMConfig, results []llm.ProbeResult) int {
	probed := make(map[string]bool, len(results))
	ok := 0
	for _, r := range results {
		probed[r.Candidate.String()] = true
		if r.Err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", r.Candidate, r.Err)
			continue
		}
		ok++
		fmt.Fprintf(w, "✓ %s: %s\n", r.Candidate, strings.TrimSpace(r.Reply))
	}
	for _, c := range cfg.Candidates {
		name := canonicalProvider(c.Provider) + "/" + c.Model
		if !probed[name] {
			fmt.Fprintf(w, "- %s: not configured\n", name)
		}
	}
	return ok
}

func canonicalProvider(name string) string {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "google":
		return "gemini"
	case "claude":
		return "anthropic"
	default:
		return name
	}
}
