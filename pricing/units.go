package pricing

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// CroresToINR converts crores to whole rupees, rounding half away from zero.
func CroresToINR(crores float64) int64 {
	return int64(math.Round(crores * INRPerCrore))
}

// INRToCrores converts rupees to crores.
func INRToCrores(inr float64) float64 {
	return inr / INRPerCrore
}

// FormatINR renders a rupee amount with the Indian digit grouping, e.g. ₹8,53,000.
func FormatINR(inr int64) string {
	if inr < 0 {
		return "-₹" + inrPrinter.Sprintf("%d", -inr)
	}
	return "₹" + inrPrinter.Sprintf("%d", inr)
}
