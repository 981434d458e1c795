package pricing

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// RouteVariation is the multiplier applied to log-blend quotes. It depends
// only on the concatenated location codes and lies in [0.97, 1.02].
func RouteVariation(source, destination string) float64 {
	h := xxhash.Sum64String(source + destination)
	return 0.97 + float64(h%6)/100
}

// ShipmentVariation is the multiplier applied to linear-fallback quotes. It
// depends on the decimal renderings of distance and weight and lies in
// [0.95, 1.04].
func ShipmentVariation(distance, weight float64) float64 {
	h := murmur3.Sum64([]byte(formatFloat(distance))) + murmur3.Sum64([]byte(formatFloat(weight)))
	return 0.95 + float64(h%10)/100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
