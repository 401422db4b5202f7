package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/config"
	"github.com/raine/telegram-carbon-bot/internal/llm"
	"github.com/spf13/cobra"
)

// newAnalyzer is replaced in tests.
var newAnalyzer = func(ctx context.Context) (llm.ReceiptAnalyzer, error) {
	config.LoadEnvFile()
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return llm.NewGeminiAnalyzer(ctx, key)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return llm.NewOpenAIAnalyzer(key), nil
	}
	return llm.NewDemoAnalyzer(0), nil
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Analyze receipt photos as one receipt",
		Long: `Reads the receipt photos with Gemini when GEMINI_API_KEY is set, or with
OpenAI when OPENAI_API_KEY is set (in the environment or the bot's config file).
Otherwise answers with a demo receipt.`,
		Args: cobra.RangeArgs(1, 10),
		RunE: func(cmd *cobra.Command, args []string) error {
			images := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				images = append(images, data)
			}

			analyzer, err := newAnalyzer(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create analyzer: %w", err)
			}
			analysis, err := analyzer.AnalyzeReceipt(cmd.Context(), images)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			result := carbon.Analyze(analysis.Items)
			w := cmd.OutOrStdout()

			if asJSON {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(out))
				return nil
			}

			if analysis.Demo {
				fmt.Fprintln(w, "(demo receipt, no vision API key is set)")
			}
			for _, item := range result.Items {
				fmt.Fprintf(w, "%-30s %8.2f kg  %s\n", item.Name, item.CarbonKg, item.Category)
			}
			fmt.Fprintf(w, "%-30s %8.2f kg\n\n", "Total", result.TotalCarbon)
			printEquivalencies(cmd, carbon.CalculateEquivalencies(result.TotalCarbon))
			fmt.Fprintln(w)
			for _, s := range result.Suggestions {
				fmt.Fprintf(w, "- %s\n", s)
			}
			if analysis.Usage.TotalTokens > 0 {
				fmt.Fprintf(w, "\n%d tokens, $%.4f\n", analysis.Usage.TotalTokens, analysis.Usage.CostUSD)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}
