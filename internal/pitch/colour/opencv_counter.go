//go:build gocv
// +build gocv

package colour

import (
	"image"

	"gocv.io/x/gocv"
)

// OpenCVCounter counts in-range pixels with OpenCV: convert to HSV,
// threshold with InRange, count the mask. Build with -tags gocv.
type OpenCVCounter struct{}

// CountInRange implements PixelCounter.
func (OpenCVCounter) CountInRange(region image.Image, r HSVRange) int {
	if region == nil || region.Bounds().Empty() {
		return 0
	}
	mat, err := gocv.ImageToMatRGB(region)
	if err != nil {
		return 0
	}
	defer mat.Close()
	if mat.Empty() {
		return 0
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(float64(r.Lower.H), float64(r.Lower.S), float64(r.Lower.V), 0)
	upper := gocv.NewScalar(float64(r.Upper.H), float64(r.Upper.S), float64(r.Upper.V), 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	return gocv.CountNonZero(mask)
}

func init() {
	defaultCounter = OpenCVCounter{}
}
