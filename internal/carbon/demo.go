package carbon

// DemoReceipts returns sample receipts with pre-assigned estimates, used when
// no vision model is configured.
func DemoReceipts() [][]AnalyzedItem {
	return [][]AnalyzedItem{
		{
			{Name: "Ground Beef 500g", CarbonKg: 13.5, Category: CategoryMeat},
			{Name: "Cheddar Cheese 200g", CarbonKg: 2.7, Category: CategoryDairy},
			{Name: "Whole Milk 1L", CarbonKg: 1.9, Category: CategoryDairy},
			{Name: "Sourdough Bread", CarbonKg: 0.8, Category: CategoryGrains},
			{Name: "Mixed Salad 300g", CarbonKg: 0.12, Category: CategoryProduce},
		},
		{
			{Name: "Chicken Breast 1kg", CarbonKg: 6.9, Category: CategoryMeat},
			{Name: "Brown Rice 1kg", CarbonKg: 2.7, Category: CategoryGrains},
			{Name: "Broccoli 500g", CarbonKg: 0.2, Category: CategoryProduce},
			{Name: "Greek Yogurt 500g", CarbonKg: 1.1, Category: CategoryDairy},
			{Name: "Bananas 1kg", CarbonKg: 0.7, Category: CategoryProduce},
		},
	}
}

// Inputs converts analyzed items back into inputs that keep their values.
func Inputs(items []AnalyzedItem) []ItemInput {
	out := make([]ItemInput, 0, len(items))
	for _, item := range items {
		kg := item.CarbonKg
		out = append(out, ItemInput{
			Name:     item.Name,
			CarbonKg: &kg,
			Category: string(item.Category),
			Quantity: item.Quantity,
			Unit:     item.Unit,
		})
	}
	return out
}
