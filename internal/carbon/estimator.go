package carbon

import (
	"math"
	"strings"
)

const (
	msgReduceBeef   = "Beef has the highest carbon footprint of any food. Swapping one beef meal per week for chicken or plant-based alternatives could save ~20kg CO2 monthly."
	msgMeatlessDay  = `Consider trying "Meatless Mondays" - replacing meat with plant-based proteins one day a week can reduce your food footprint by 15%.`
	msgDairyAlt     = "Dairy alternatives like oat or almond milk produce 60-80% less emissions than cow's milk."
	msgCombineTrips = "If possible, combining errands into fewer trips can significantly reduce transport emissions."
	msgBuyLocal     = "Buying local and seasonal produce reduces transport emissions and often tastes better too!"

	// highMeatThresholdKg switches the meat suggestion from a meatless day to cutting beef.
	highMeatThresholdKg = 10.0
	maxSuggestions      = 3
)

// Equivalency conversion factors.
const (
	kgPerCarKm            = 0.21
	kgPerShortFlight      = 90.0
	kgPerTreeYear         = 21.0
	kgPerSmartphoneCharge = 0.07
	kgPerLightbulbHour    = 0.01
)

// EstimateItemCarbon returns the estimated kg CO2e of quantity units of the named item.
// The first emission factor keyword found in the lower-cased name wins; names
// matching nothing fall back to DefaultFactor.
func EstimateItemCarbon(name string, quantity float64) float64 {
	if f, ok := LookupFactor(name); ok {
		return f.KgCO2e * quantity
	}
	return DefaultFactor * quantity
}

// EstimateOne estimates a single unit of the named item.
func EstimateOne(name string) float64 {
	return EstimateItemCarbon(name, 1)
}

// LookupFactor returns the emission factor that EstimateItemCarbon would use for name.
func LookupFactor(name string) (EmissionFactor, bool) {
	lower := strings.ToLower(name)
	for _, f := range emissionFactors {
		if strings.Contains(lower, f.Keyword) {
			return f, true
		}
	}
	return EmissionFactor{}, false
}

// CategorizeItem returns the first category with a keyword contained in the
// lower-cased name, or CategoryOther.
func CategorizeItem(name string) Category {
	lower := strings.ToLower(name)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.Keywords {
			if strings.Contains(lower, kw) {
				return ck.Category
			}
		}
	}
	return CategoryOther
}

// GenerateSuggestions returns up to three reduction tips for the given items.
func GenerateSuggestions(items []AnalyzedItem) []string {
	var (
		hasMeat, hasDairy, hasTransport bool
		meatKg                          float64
	)
	for _, item := range items {
		switch item.Category {
		case CategoryMeat:
			hasMeat = true
			meatKg += item.CarbonKg
		case CategoryDairy:
			hasDairy = true
		case CategoryTransport:
			hasTransport = true
		}
	}

	suggestions := make([]string, 0, maxSuggestions)
	if hasMeat {
		if meatKg > highMeatThresholdKg {
			suggestions = append(suggestions, msgReduceBeef)
		} else {
			suggestions = append(suggestions, msgMeatlessDay)
		}
	}
	if hasDairy {
		suggestions = append(suggestions, msgDairyAlt)
	}
	if hasTransport {
		suggestions = append(suggestions, msgCombineTrips)
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, msgBuyLocal)
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// CalculateEquivalencies converts kg CO2e into everyday equivalents.
func CalculateEquivalencies(kg float64) Equivalencies {
	return Equivalencies{
		CarKm:             int64(math.Round(kg / kgPerCarKm)),
		Flights:           RoundTo(kg/kgPerShortFlight, 1),
		Trees:             int64(math.Ceil(kg / kgPerTreeYear)),
		SmartphoneCharges: int64(math.Round(kg / kgPerSmartphoneCharge)),
		LightbulbHours:    int64(math.Round(kg / kgPerLightbulbHour)),
	}
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
