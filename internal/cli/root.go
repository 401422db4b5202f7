package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command of the carbon CLI.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "carbon-cli",
		Short:         "Estimate carbon footprints from the command line",
		Long:          "carbon-cli runs the bot's carbon estimator and receipt analyzer without Telegram.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.WarnLevel
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(
		NewEstimateCmd(),
		NewCategorizeCmd(),
		NewEquivalenciesCmd(),
		NewFactorsCmd(),
		NewAnalyzeCmd(),
	)
	return cmd
}

const rootCmdExample = `  # Estimate half a kilo of beef
  carbon-cli estimate "ground beef" --qty 0.5

  # Show what 20 kg CO2e compares to
  carbon-cli equivalencies 20

  # Analyze receipt photos (demo data without GEMINI_API_KEY)
  carbon-cli analyze receipt.jpg`
