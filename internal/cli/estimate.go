package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/spf13/cobra"
)

// NewEstimateCmd creates the estimate command.
func NewEstimateCmd() *cobra.Command {
	var qty float64

	cmd := &cobra.Command{
		Use:   "estimate <item name>",
		Short: "Estimate the emissions of an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if qty <= 0 || math.IsInf(qty, 0) || math.IsNaN(qty) {
				return errors.New("--qty must be a positive number")
			}
			name := strings.Join(args, " ")
			item := carbon.ResolveItem(carbon.ItemInput{Name: name, Quantity: &qty})

			factor := "default"
			if f, ok := carbon.LookupFactor(name); ok {
				factor = fmt.Sprintf("%s, %g kg CO2e/%s", f.Keyword, f.KgCO2e, f.Unit)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %g kg CO2e (%s; factor %s)\n", item.Name, carbon.RoundTo(item.CarbonKg, 2), item.Category, factor)
			return nil
		},
	}

	cmd.Flags().Float64Var(&qty, "qty", 1, "quantity in the factor's unit")
	return cmd
}

// NewCategorizeCmd creates the categorize command.
func NewCategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <item name>",
		Short: "Show the category an item falls into",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), carbon.CategorizeItem(strings.Join(args, " ")))
		},
	}
}

// NewEquivalenciesCmd creates the equivalencies command.
func NewEquivalenciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equivalencies <kg>",
		Short: "Express an amount of CO2e in everyday terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, err := strconv.ParseFloat(args[0], 64)
			if err != nil || kg < 0 || math.IsNaN(kg) || math.IsInf(kg, 0) {
				return fmt.Errorf("invalid amount %q: must be a non-negative number", args[0])
			}
			printEquivalencies(cmd, carbon.CalculateEquivalencies(kg))
			return nil
		},
	}
}

func printEquivalencies(cmd *cobra.Command, eq carbon.Equivalencies) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-14s %d km\n", "Driving:", eq.CarKm)
	fmt.Fprintf(out, "%-14s %g\n", "Flights:", eq.Flights)
	fmt.Fprintf(out, "%-14s %d\n", "Trees (year):", eq.Trees)
	fmt.Fprintf(out, "%-14s %d\n", "Phone charges:", eq.SmartphoneCharges)
	fmt.Fprintf(out, "%-14s %d\n", "Bulb hours:", eq.LightbulbHours)
}

// NewFactorsCmd creates the factors command.
func NewFactorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "List the emission factor table in lookup order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("KEYWORD", "KG CO2E", "UNIT", "CATEGORY")
			for _, f := range carbon.EmissionFactors() {
				t.Row(f.Keyword, strconv.FormatFloat(f.KgCO2e, 'f', -1, 64), f.Unit, string(carbon.CategorizeItem(f.Keyword)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		},
	}
}
