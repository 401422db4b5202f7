package bot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var categoryEmoji = map[carbon.Category]string{
	carbon.CategoryMeat:      "🥩",
	carbon.CategorySeafood:   "🐟",
	carbon.CategoryDairy:     "🧀",
	carbon.CategoryProduce:   "🥦",
	carbon.CategoryGrains:    "🍞",
	carbon.CategoryBeverages: "☕",
	carbon.CategoryTransport: "🚗",
	carbon.CategoryUtilities: "💡",
	carbon.CategoryShopping:  "🛍",
	carbon.CategoryOther:     "📦",
}

func emojiFor(c carbon.Category) string {
	if e, ok := categoryEmoji[c]; ok {
		return e
	}
	return categoryEmoji[carbon.CategoryOther]
}

// formatKg renders a mass with thousand separators and at most two decimals.
func formatKg(kg float64) string {
	return humanize.CommafWithDigits(carbon.RoundTo(kg, 2), 2) + " kg"
}

func formatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// formatEquivalencies lists the everyday comparisons for a carbon amount.
func formatEquivalencies(eq carbon.Equivalencies) string {
	lines := []string{
		fmt.Sprintf("🚗 %s km by car", formatCount(eq.CarKm)),
		fmt.Sprintf("✈️ %s flights", humanize.CommafWithDigits(eq.Flights, 1)),
		fmt.Sprintf("🌳 %s trees for a year", formatCount(eq.Trees)),
		fmt.Sprintf("📱 %s phone charges", formatCount(eq.SmartphoneCharges)),
		fmt.Sprintf("💡 %s hours of a light bulb", formatCount(eq.LightbulbHours)),
	}
	return strings.Join(lines, "\n")
}

// formatAnalysis renders a receipt analysis as a Telegram Markdown message.
func formatAnalysis(result carbon.AnalysisResult, demo bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(MsgReceiptHeader, pluralize("item", "items", len(result.Items))))
	sb.WriteString("\n\n")

	for _, item := range result.Items {
		sb.WriteString(fmt.Sprintf("%s %s: %s\n", emojiFor(item.Category), escapeMarkdown(item.Name), formatKg(item.CarbonKg)))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(MsgReceiptTotal, formatKg(result.TotalCarbon)))
	sb.WriteString("\n\n")
	sb.WriteString(MsgEquivalentsHeader)
	sb.WriteString("\n")
	sb.WriteString(formatEquivalencies(carbon.CalculateEquivalencies(result.TotalCarbon)))

	if len(result.Suggestions) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(MsgSuggestionsHeader)
		for _, s := range result.Suggestions {
			sb.WriteString("\n• ")
			sb.WriteString(s)
		}
	}

	if demo {
		sb.WriteString("\n\n")
		sb.WriteString(MsgDemoNote)
	}
	return sb.String()
}
