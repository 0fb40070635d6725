package analysis

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders f rounded to a whole number with thousands separators.
func FormatAmount(f float64) string {
	return message.NewPrinter(language.English).Sprintf("%.0f", f)
}

// Rupees renders f as a whole-rupee amount: 150000 renders as ₹150,000.
func Rupees(f float64) string { return "₹" + FormatAmount(f) }

func sortCounts(cs []Count) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].N > cs[j].N })
}

func sortAggsByKey(as []Agg) {
	sort.Slice(as, func(i, j int) bool { return as[i].Key < as[j].Key })
}

// SortAggsBySum orders aggregates by descending sum, ties by key.
func SortAggsBySum(as []Agg) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Sum == as[j].Sum {
			return as[i].Key < as[j].Key
		}
		return as[i].Sum > as[j].Sum
	})
}
