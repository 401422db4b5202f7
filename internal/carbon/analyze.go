package carbon

import (
	"math"
	"strings"
)

// UnknownItemName replaces blank item names.
const UnknownItemName = "Unknown item"

// Analyze fills in missing carbon and category values for each input and
// aggregates the result. Inputs with a valid carbon value or a known category
// keep them as given.
func Analyze(inputs []ItemInput) AnalysisResult {
	items := make([]AnalyzedItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, ResolveItem(in))
	}
	return Summarize(items)
}

// ResolveItem turns a single input into an AnalyzedItem.
func ResolveItem(in ItemInput) AnalyzedItem {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = UnknownItemName
	}

	qty := 1.0
	if in.Quantity != nil && *in.Quantity > 0 && !math.IsInf(*in.Quantity, 0) {
		qty = *in.Quantity
	}

	var kg float64
	if in.CarbonKg != nil && validCarbon(*in.CarbonKg) {
		kg = *in.CarbonKg
	} else {
		kg = EstimateItemCarbon(name, qty)
	}

	category, ok := ParseCategory(in.Category)
	if !ok {
		category = CategorizeItem(name)
	}

	item := AnalyzedItem{
		Name:     name,
		CarbonKg: kg,
		Category: category,
		Unit:     strings.TrimSpace(in.Unit),
	}
	if in.Quantity != nil {
		q := *in.Quantity
		item.Quantity = &q
	}
	return item
}

// Summarize totals already-resolved items and attaches suggestions.
func Summarize(items []AnalyzedItem) AnalysisResult {
	if items == nil {
		items = []AnalyzedItem{}
	}
	return AnalysisResult{
		Items:       items,
		TotalCarbon: TotalCarbon(items),
		Suggestions: GenerateSuggestions(items),
	}
}

// TotalCarbon sums item carbon rounded to two decimals.
func TotalCarbon(items []AnalyzedItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.CarbonKg
	}
	return math.Round(sum*100) / 100
}

func validCarbon(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
