package logic

// DefaultConvenienceFee is added to every non-empty bag at checkout.
const DefaultConvenienceFee = 99

// BagSummary is the price breakdown shown next to the bag.
type BagSummary struct {
	TotalItems     int
	TotalMRP       int
	TotalDiscount  int
	ConvenienceFee int
	FinalPayment   int
}

// Empty reports whether there is nothing to pay for.
func (s BagSummary) Empty() bool {
	return s.TotalItems == 0
}

// BagCount is the number of entries in the bag, duplicates included.
func BagCount(s State) int {
	return len(s.Bag)
}

// InBag reports whether id has at least one entry in the bag.
func InBag(s State, id string) bool {
	return indexOf(s.Bag, id) >= 0
}

// BagItems resolves bag ids against the catalog in bag order. Ids with no
// catalog entry are skipped.
func BagItems(s State) []Item {
	byID := make(map[string]Item, len(s.Catalog))
	for _, item := range s.Catalog {
		if _, seen := byID[item.ID]; !seen {
			byID[item.ID] = item
		}
	}
	items := make([]Item, 0, len(s.Bag))
	for _, id := range s.Bag {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items
}

// Summarize prices the resolved bag items. The fee only applies when the bag
// holds something.
func Summarize(s State, convenienceFee int) BagSummary {
	items := BagItems(s)
	summary := BagSummary{TotalItems: len(items)}
	for _, item := range items {
		summary.TotalMRP += item.OriginalPrice
		summary.TotalDiscount += item.Discount()
	}
	if summary.TotalItems > 0 {
		summary.ConvenienceFee = convenienceFee
	}
	summary.FinalPayment = summary.TotalMRP - summary.TotalDiscount + summary.ConvenienceFee
	return summary
}
