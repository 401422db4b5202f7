package carbon

import "strings"

// Category classifies an item's consumption domain.
type Category string

const (
	CategoryMeat      Category = "Food - Meat"
	CategorySeafood   Category = "Food - Seafood"
	CategoryDairy     Category = "Food - Dairy"
	CategoryProduce   Category = "Food - Produce"
	CategoryGrains    Category = "Food - Grains"
	CategoryBeverages Category = "Food - Beverages"
	CategoryTransport Category = "Transport"
	CategoryUtilities Category = "Utilities"
	CategoryShopping  Category = "Shopping"
	CategoryOther     Category = "Other"
)

// Categories lists every category in keyword table order, with Other last.
var Categories = []Category{
	CategoryMeat,
	CategorySeafood,
	CategoryDairy,
	CategoryProduce,
	CategoryGrains,
	CategoryBeverages,
	CategoryTransport,
	CategoryUtilities,
	CategoryShopping,
	CategoryOther,
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the known labels, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// AnalyzedItem is a single estimated line item.
type AnalyzedItem struct {
	Name     string   `json:"name"`
	CarbonKg float64  `json:"carbonKg"`
	Category Category `json:"category"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

// AnalysisResult is the outcome of analyzing a list of items.
type AnalysisResult struct {
	Items       []AnalyzedItem `json:"items"`
	TotalCarbon float64        `json:"totalCarbon"`
	Suggestions []string       `json:"suggestions"`
}

// Equivalencies expresses a carbon mass in everyday terms.
type Equivalencies struct {
	CarKm             int64   `json:"carKm"`
	Flights           float64 `json:"flights"`
	Trees             int64   `json:"trees"`
	SmartphoneCharges int64   `json:"smartphoneCharges"`
	LightbulbHours    int64   `json:"lightbulbHours"`
}

// ItemInput is an item as reported by a collaborator such as a vision model
// or a user command. Any field may be missing; Analyze fills the gaps.
type ItemInput struct {
	Name     string   `json:"name"`
	CarbonKg *float64 `json:"carbonKg,omitempty"`
	Category string   `json:"category,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}
