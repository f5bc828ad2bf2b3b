package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	contentType    string
	imagePath      string
	outJSON        string
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [content]",
	Short: "Analyze one piece of content and store the record",
	Long: `Analyze runs the full pipeline on text, a headline, a link or an image:
- Normalize links into their page title and description
- Score keywords and the source domain
- Look up published fact-checks and web citations in parallel
- Ask the configured generative models for a verdict
- Fuse everything into a 0-100 score and persist the record

Example:
  veritas analyze "Scientists confirm water found on Mars"
  veritas analyze https://www.bbc.com/news/some-story --type url
  veritas analyze --image ./photo.jpg --json record.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if imagePath != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&contentType, "type", "", "content type: text, headline or url (default: text, or url for links)")
	analyzeCmd.Flags().StringVar(&imagePath, "image", "", "analyze an image file instead of text")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write the record to this path instead of stdout")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(false)

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	p, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	var rec *model.AnalysisRecord
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		rec, err = p.AnalyzeImage(ctx, pipeline.ImageUpload{
			Data:     data,
			Filename: filepath.Base(imagePath),
		})
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	} else {
		req, err := buildRequest(args[0], contentType)
		if err != nil {
			return err
		}
		rec, err = p.Analyze(ctx, req)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Score %d/100 (%s)\n", rec.FinalScore, rec.Category)
	}

	if outJSON == "" {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	f, err := os.Create(outJSON)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeJSON(f, rec); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// buildRequest applies the declared type, typing bare links as urls
func buildRequest(content, declared string) (model.AnalysisRequest, error) {
	t, err := model.ParseContentType(declared)
	if err != nil {
		return model.AnalysisRequest{}, err
	}
	if declared == "" && model.LooksLikeURL(content) {
		t = model.TypeURL
	}
	req := model.AnalysisRequest{Content: content, Type: t}
	return req, req.Validate()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
