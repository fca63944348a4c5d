package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColour parses a "#rrggbb" string into an opaque RGBA colour.
func ParseHexColour(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("colour %q must be in #rrggbb form", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q is not valid hex: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
