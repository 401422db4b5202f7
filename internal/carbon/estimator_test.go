package carbon

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateItemCarbon(t *testing.T) {
	tests := []struct {
		name     string
		item     string
		quantity float64
		want     float64
	}{
		{"beef from receipt line", "Ground Beef 500g", 1, 27.0},
		{"case insensitive", "CHICKEN BREAST", 1, 6.9},
		{"quantity multiplies", "Whole Milk", 2, 3.8},
		{"zero quantity", "beef", 0, 0},
		{"unknown item falls back", "xyz123", 1, 0.5},
		{"unknown item scales fallback", "Detergent", 4, 2.0},
		{"first table key wins over later key", "Rice with beef", 1, 27.0},
		{"steak matches tea before any meat key", "Steak", 1, 1.5},
		{"cheeseburger matches cheese", "Cheeseburger", 1, 13.5},
		{"singular apple misses apples", "Pineapple", 1, 0.5},
		{"zero factor transport", "bike", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateItemCarbon(tt.item, tt.quantity), 1e-9)
		})
	}
}

func TestEstimateItemCarbon_EveryKeyword(t *testing.T) {
	var shadowed []string
	for _, f := range EmissionFactors() {
		first, ok := LookupFactor(f.Keyword)
		require.True(t, ok)
		if first.Keyword != f.Keyword {
			shadowed = append(shadowed, f.Keyword+">"+first.Keyword)
		}
		for _, q := range []float64{0, 1, 2.5, 10} {
			assert.InDelta(t, first.KgCO2e*q, EstimateItemCarbon(f.Keyword, q), 1e-9, "keyword %q qty %v", f.Keyword, q)
		}
	}

	// "ice_cream" contains the earlier dairy key "cream".
	assert.Equal(t, []string{"ice_cream>cream"}, shadowed)
	assert.InDelta(t, 3.7, EstimateOne("ice_cream"), 1e-9)
}

func TestEmissionFactors_Table(t *testing.T) {
	factors := EmissionFactors()
	require.Len(t, factors, 60)
	assert.Equal(t, "beef", factors[0].Keyword)
	assert.Equal(t, "furniture", factors[len(factors)-1].Keyword)

	seen := make(map[string]bool)
	for _, f := range factors {
		assert.GreaterOrEqual(t, f.KgCO2e, 0.0, f.Keyword)
		assert.Equal(t, strings.ToLower(f.Keyword), f.Keyword)
		assert.False(t, seen[f.Keyword], "duplicate keyword %q", f.Keyword)
		seen[f.Keyword] = true
	}

	// Mutating the copy must not leak into lookups.
	factors[0].KgCO2e = 999
	assert.InDelta(t, 27.0, EstimateOne("beef"), 1e-9)
}

func TestCategorizeItem(t *testing.T) {
	tests := []struct {
		item string
		want Category
	}{
		{"Ground Beef 500g", CategoryMeat},
		{"Hamburger buns", CategoryMeat},
		{"Atlantic Salmon", CategorySeafood},
		{"Free range eggs", CategoryDairy},
		{"Cheeseburger", CategoryDairy},
		{"Pineapple", CategoryProduce},
		{"Mixed Salad 300g", CategoryProduce},
		{"Rolled oats", CategoryGrains},
		{"Sparkling water", CategoryBeverages},
		{"Water bill", CategoryBeverages},
		{"Uber ride", CategoryTransport},
		{"Gas bill", CategoryTransport},
		{"Electricity bill", CategoryUtilities},
		{"Running shoes", CategoryShopping},
		{"xyz123", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeItem(tt.item))
		})
	}
}

func TestCategoryKeywordTable_Order(t *testing.T) {
	table := CategoryKeywordTable()
	require.Len(t, table, 9)
	for i, ck := range table {
		assert.Equal(t, Categories[i], ck.Category)
	}

	table[0].Keywords[0] = "tofu"
	assert.Equal(t, CategoryMeat, CategorizeItem("beef"))
}

func TestGenerateSuggestions(t *testing.T) {
	tests := []struct {
		name  string
		items []AnalyzedItem
		want  []string
	}{
		{
			name:  "heavy meat",
			items: []AnalyzedItem{{Category: CategoryMeat, CarbonKg: 13.5}},
			want:  []string{msgReduceBeef},
		},
		{
			name: "meat summed across items",
			items: []AnalyzedItem{
				{Category: CategoryMeat, CarbonKg: 6},
				{Category: CategoryMeat, CarbonKg: 5},
			},
			want: []string{msgReduceBeef},
		},
		{
			name:  "exactly ten kg is light meat",
			items: []AnalyzedItem{{Category: CategoryMeat, CarbonKg: 10}},
			want:  []string{msgMeatlessDay},
		},
		{
			name:  "produce only gets generic tip",
			items: []AnalyzedItem{{Category: CategoryProduce, CarbonKg: 0.1}},
			want:  []string{msgBuyLocal},
		},
		{
			name:  "empty list gets generic tip",
			items: nil,
			want:  []string{msgBuyLocal},
		},
		{
			name: "all triggers in fixed order",
			items: []AnalyzedItem{
				{Category: CategoryTransport, CarbonKg: 2},
				{Category: CategoryDairy, CarbonKg: 1.9},
				{Category: CategoryMeat, CarbonKg: 6.9},
				{Category: CategoryProduce, CarbonKg: 0.4},
			},
			want: []string{msgMeatlessDay, msgDairyAlt, msgCombineTrips},
		},
		{
			name: "dairy and transport without meat",
			items: []AnalyzedItem{
				{Category: CategoryDairy, CarbonKg: 1},
				{Category: CategoryTransport, CarbonKg: 1},
			},
			want: []string{msgDairyAlt, msgCombineTrips},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSuggestions(tt.items)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 3)
		})
	}
}

func TestGenerateSuggestions_DemoReceipt(t *testing.T) {
	got := GenerateSuggestions(DemoReceipts()[0])
	require.Len(t, got, 2)
	assert.Equal(t, msgReduceBeef, got[0])
	assert.Equal(t, msgDairyAlt, got[1])
}

func TestCalculateEquivalencies(t *testing.T) {
	tests := []struct {
		kg   float64
		want Equivalencies
	}{
		{0, Equivalencies{}},
		{21, Equivalencies{CarKm: 100, Flights: 0.2, Trees: 1, SmartphoneCharges: 300, LightbulbHours: 2100}},
		{19.02, Equivalencies{CarKm: 91, Flights: 0.2, Trees: 1, SmartphoneCharges: 272, LightbulbHours: 1902}},
		{150, Equivalencies{CarKm: 714, Flights: 1.7, Trees: 8, SmartphoneCharges: 2143, LightbulbHours: 15000}},
	}

	for _, tt := range tests {
		got := CalculateEquivalencies(tt.kg)
		assert.Equal(t, tt.want.CarKm, got.CarKm, "carKm for %v", tt.kg)
		assert.InDelta(t, tt.want.Flights, got.Flights, 1e-9, "flights for %v", tt.kg)
		assert.Equal(t, tt.want.Trees, got.Trees, "trees for %v", tt.kg)
		assert.Equal(t, tt.want.SmartphoneCharges, got.SmartphoneCharges, "charges for %v", tt.kg)
		assert.Equal(t, tt.want.LightbulbHours, got.LightbulbHours, "bulb hours for %v", tt.kg)
	}
}

func TestEstimator_ConcurrentUse(t *testing.T) {
	names := []string{"Ground Beef", "Steak", "Gas bill", "xyz", "Cheeseburger"}
	want := make(map[string]float64)
	for _, n := range names {
		want[n] = EstimateOne(n)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, n := range names {
				assert.Equal(t, want[n], EstimateOne(n))
				_ = CategorizeItem(n)
			}
		}()
	}
	wg.Wait()
}
