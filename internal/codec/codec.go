// Package codec packs wide-range game counters (gold, troops, tiles) into a
// single int16 for dense per-tick storage.
//
// Values are quantized on a log10 scale over [0, MaxValue], so the relative
// error stays well under 1% for values >= 10. Small values have a large
// relative but a small absolute error; only zero round-trips exactly.
package codec

import "math"

// MaxValue is the largest counter that can be represented. Larger inputs clamp.
const MaxValue uint64 = 1_000_000_000_000

const (
	u16Max   = 65535
	i16Shift = 32768
)

var logMax = math.Log10(float64(MaxValue) + 1)

// Encode maps value onto [-32768, 32767].
func Encode(value uint64) int16 {
	if value > MaxValue {
		value = MaxValue
	}
	norm := math.Log10(float64(value)+1) / logMax
	u := int32(math.Round(norm * u16Max))
	return int16(u - i16Shift)
}

// Decode inverts Encode up to the quantization step.
func Decode(code int16) uint64 {
	u := int32(code) + i16Shift
	norm := float64(u) / u16Max
	v := math.Round(math.Pow(10, norm*logMax) - 1)
	if v <= 0 {
		return 0
	}
	return uint64(v)
}
