package colour

import (
	"image"
	"image/color"
	"math"
)

// HSV is a colour on the OpenCV 8-bit scale: H in [0, 179], S and V in
// [0, 255]. Filter ranges are written on this scale so they can be shared
// with OpenCV tooling unchanged.
type HSV struct {
	H, S, V uint8
}

// HSVRange is an inclusive box in HSV space.
type HSVRange struct {
	Name  string
	Lower HSV
	Upper HSV
}

// Contains reports whether c lies inside the range on every channel.
func (r HSVRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// ToHSV converts a colour using the same formulae as OpenCV's
// COLOR_BGR2HSV for 8-bit images.
func ToHSV(c color.Color) HSV {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	r, g, b := float64(n.R), float64(n.G), float64(n.B)

	v := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := v - minC

	var s float64
	if v > 0 {
		s = diff * 255 / v
	}

	var h float64
	if diff > 0 {
		switch v {
		case r:
			h = 60 * (g - b) / diff
		case g:
			h = 120 + 60*(b-r)/diff
		default:
			h = 240 + 60*(r-g)/diff
		}
		if h < 0 {
			h += 360
		}
	}

	return HSV{
		H: uint8(math.Min(179, math.Round(h/2))),
		S: uint8(math.Round(s)),
		V: uint8(v),
	}
}

// PixelCounter counts the pixels of a region that fall inside an HSV range.
type PixelCounter interface {
	CountInRange(region image.Image, r HSVRange) int
}

// ImageCounter is the pure-Go PixelCounter. Fully transparent pixels are
// ignored.
type ImageCounter struct{}

// CountInRange implements PixelCounter.
func (ImageCounter) CountInRange(region image.Image, r HSVRange) int {
	if region == nil {
		return 0
	}
	b := region.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := region.At(x, y)
			if _, _, _, a := px.RGBA(); a == 0 {
				continue
			}
			if r.Contains(ToHSV(px)) {
				n++
			}
		}
	}
	return n
}
