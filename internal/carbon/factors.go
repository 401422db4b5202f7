package carbon

// EmissionFactor maps a keyword to kg CO2e per natural unit.
type EmissionFactor struct {
	Keyword string
	KgCO2e  float64
	Unit    string
}

// CategoryKeywords maps a category to the substrings that identify it.
type CategoryKeywords struct {
	Category Category
	Keywords []string
}

const (
	// DefaultFactor is used for items that match no emission factor keyword.
	DefaultFactor = 0.5

	// GlobalMonthlyAverageKg is the monthly per-person baseline users are compared against.
	GlobalMonthlyAverageKg = 150.0
)

// Order matters: lookups stop at the first keyword contained in the name.
var emissionFactors = []EmissionFactor{
	// meat & fish
	{"beef", 27.0, "kg"},
	{"lamb", 24.0, "kg"},
	{"pork", 12.1, "kg"},
	{"chicken", 6.9, "kg"},
	{"turkey", 5.3, "kg"},
	{"fish", 5.4, "kg"},
	{"salmon", 6.0, "kg"},
	{"tuna", 5.9, "kg"},
	{"shrimp", 11.8, "kg"},

	// dairy
	{"cheese", 13.5, "kg"},
	{"butter", 9.0, "kg"},
	{"milk", 1.9, "l"},
	{"yogurt", 2.2, "kg"},
	{"cream", 3.7, "kg"},
	{"eggs", 4.8, "dozen"},

	// plant-based
	{"tofu", 2.0, "kg"},
	{"beans", 0.8, "kg"},
	{"lentils", 0.9, "kg"},
	{"nuts", 0.3, "kg"},

	// grains
	{"rice", 2.7, "kg"},
	{"pasta", 1.2, "kg"},
	{"bread", 0.8, "kg"},
	{"cereal", 1.5, "kg"},
	{"flour", 0.7, "kg"},

	// produce
	{"vegetables", 0.4, "kg"},
	{"fruits", 0.5, "kg"},
	{"potatoes", 0.3, "kg"},
	{"tomatoes", 1.4, "kg"},
	{"lettuce", 0.4, "kg"},
	{"onions", 0.3, "kg"},
	{"carrots", 0.3, "kg"},
	{"apples", 0.4, "kg"},
	{"bananas", 0.7, "kg"},
	{"oranges", 0.5, "kg"},

	// beverages
	{"coffee", 8.0, "kg"},
	{"tea", 1.5, "l"},
	{"beer", 0.9, "l"},
	{"wine", 1.3, "l"},
	{"soda", 0.4, "l"},
	{"juice", 0.8, "l"},

	// processed
	{"chocolate", 4.5, "kg"},
	{"chips", 2.5, "kg"},
	{"pizza", 3.2, "kg"},
	{"ice_cream", 3.8, "kg"},

	// transport
	{"car_petrol", 0.21, "km"},
	{"car_diesel", 0.17, "km"},
	{"car_electric", 0.05, "km"},
	{"bus", 0.089, "km"},
	{"train", 0.041, "km"},
	{"subway", 0.03, "km"},
	{"flight_short", 0.255, "km"},
	{"flight_long", 0.195, "km"},
	{"bike", 0, "km"},
	{"walk", 0, "km"},

	// utilities
	{"electricity", 0.42, "kWh"},
	{"natural_gas", 2.0, "therm"},
	{"heating_oil", 2.5, "l"},

	// household
	{"clothing", 15.0, "item"},
	{"electronics", 50.0, "item"},
	{"furniture", 100.0, "item"},
}

var categoryKeywords = []CategoryKeywords{
	{CategoryMeat, []string{"beef", "steak", "lamb", "pork", "bacon", "ham", "chicken", "turkey", "sausage", "mince", "ground"}},
	{CategorySeafood, []string{"fish", "salmon", "tuna", "shrimp", "prawn", "cod", "tilapia", "crab", "lobster"}},
	{CategoryDairy, []string{"milk", "cheese", "yogurt", "butter", "cream", "eggs", "egg"}},
	{CategoryProduce, []string{"apple", "banana", "orange", "tomato", "potato", "carrot", "lettuce", "onion", "vegetable", "fruit", "salad"}},
	{CategoryGrains, []string{"bread", "rice", "pasta", "cereal", "flour", "oat", "wheat"}},
	{CategoryBeverages, []string{"coffee", "tea", "juice", "soda", "beer", "wine", "water"}},
	{CategoryTransport, []string{"uber", "lyft", "taxi", "gas", "petrol", "diesel", "parking", "toll", "transit"}},
	{CategoryUtilities, []string{"electric", "power", "gas bill", "water bill", "heating", "energy"}},
	{CategoryShopping, []string{"shirt", "pants", "shoes", "jacket", "dress", "clothing", "clothes"}},
}

// EmissionFactors returns a copy of the emission factor table in lookup order.
func EmissionFactors() []EmissionFactor {
	out := make([]EmissionFactor, len(emissionFactors))
	copy(out, emissionFactors)
	return out
}

// CategoryKeywordTable returns a copy of the category keyword table in lookup order.
func CategoryKeywordTable() []CategoryKeywords {
	out := make([]CategoryKeywords, len(categoryKeywords))
	for i, ck := range categoryKeywords {
		out[i] = CategoryKeywords{
			Category: ck.Category,
			Keywords: append([]string(nil), ck.Keywords...),
		}
	}
	return out
}
