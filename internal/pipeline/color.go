package pipeline

import "math"

// Colour and measurement conversions between gateway payload values and
// cluster attribute encodings.

// XYToHueSat converts CIE xy chromaticity to hue/saturation in the 0..254
// cluster range. The xy value is mapped through linear RGB (D65, sRGB
// primaries) to HSL and the lightness discarded.
func XYToHueSat(x, y float64) (hue, sat uint8) {
	if y == 0 {
		return 0, 0
	}

	// xyY (Y=1) to XYZ.
	X := x / y
	Y := 1.0
	Z := (1 - x - y) / y

	// XYZ to linear sRGB.
	r := X*1.656492 - Y*0.354851 - Z*0.255038
	g := -X*0.707196 + Y*1.655397 + Z*0.036152
	b := X*0.051713 - Y*0.121364 + Z*1.011530

	// Scale into 0..1 keeping the ratios.
	maxC := math.Max(r, math.Max(g, b))
	if maxC > 0 {
		r /= maxC
		g /= maxC
		b /= maxC
	}
	r = clampUnit(r)
	g = clampUnit(g)
	b = clampUnit(b)

	h, s, _ := rgbToHSL(r, g, b)
	return uint8(math.Round(h / 360 * 254)), uint8(math.Round(s * 254))
}

// HueSatToRGB converts cluster hue/saturation (0..254) to an RGB triple
// at 50% lightness, the form the gateway accepts in color set payloads.
func HueSatToRGB(hue, sat float64) (r, g, b uint8) {
	h := hue / 254 * 360
	s := sat / 254
	fr, fg, fb := hslToRGB(h, s, 0.5)
	return uint8(math.Round(fr * 255)), uint8(math.Round(fg * 255)), uint8(math.Round(fb * 255))
}

// rgbToHSL converts RGB in 0..1 to hue (degrees), saturation and lightness.
func rgbToHSL(r, g, b float64) (h, s, l float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2

	if maxC == minC {
		return 0, 0, l
	}

	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}

	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	case b:
		h = (r-g)/d + 4
	}
	return h * 60, s, l
}

// hslToRGB converts hue (degrees), saturation and lightness to RGB in 0..1.
func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	hn := h / 360
	return hueToRGB(p, q, hn+1.0/3.0), hueToRGB(p, q, hn), hueToRGB(p, q, hn-1.0/3.0)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// TemperatureToMeasured encodes degrees Celsius in hundredths.
func TemperatureToMeasured(v float64) int64 {
	return int64(math.Round(v * 100))
}

// HumidityToMeasured encodes relative humidity percent in hundredths.
func HumidityToMeasured(v float64) int64 {
	return int64(math.Round(v * 100))
}

// PressureToMeasured encodes pressure in whole hPa.
func PressureToMeasured(v float64) int64 {
	return int64(math.Round(v))
}

// LuxToMeasured encodes lux on the logarithmic measurement scale:
// round(10000*log10(lux) + 1), clamped to 0..0xFFFE.
func LuxToMeasured(lux float64) int64 {
	if lux <= 0 {
		return 0
	}
	v := math.Round(10000*math.Log10(lux) + 1)
	if v < 0 {
		return 0
	}
	if v > 0xFFFE {
		return 0xFFFE
	}
	return int64(v)
}

// BatteryToPercentRemaining encodes percent in half-percent units.
func BatteryToPercentRemaining(v float64) int64 {
	return int64(math.Round(v * 2))
}
