package colour

import (
	"image"

	"github.com/banshee-data/pitch.report/internal/pitch"
)

// Cropper extracts the region of a frame covered by a bounding box. The
// engine only consumes the returned region; how it is produced belongs to
// the caller.
type Cropper interface {
	Crop(frame image.Image, box pitch.BoundingBox) image.Image
}

// SubImageCropper crops by sharing pixels with the frame where the image
// type allows it. Boxes partly outside the frame are clipped; boxes fully
// outside yield nil.
type SubImageCropper struct{}

// Crop implements Cropper.
func (SubImageCropper) Crop(frame image.Image, box pitch.BoundingBox) image.Image {
	if frame == nil || !box.Valid() {
		return nil
	}
	r := box.Rect().Intersect(frame.Bounds())
	if r.Empty() {
		return nil
	}
	return subImage(frame, r)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// window restricts an image that cannot SubImage itself to r.
type window struct {
	image.Image
	r image.Rectangle
}

func (w window) Bounds() image.Rectangle { return w.r }

func subImage(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	return window{Image: img, r: r}
}
