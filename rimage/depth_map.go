// Package rimage holds the image types exchanged between the fusion stages: 16 bit depth maps and
// decoded color frames.
package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Depth is a depth value in device units, usually millimeters. Zero means no measurement.
type Depth uint16

// MaxDepth is the largest representable depth.
const MaxDepth = Depth(math.MaxUint16)

// DepthMap is a row major grid of depth values.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a width x height map filled with zeros.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// Width returns the horizontal size in pixels.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical size in pixels.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle covered by the map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// Contains reports whether (x, y) is inside the map.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[x+y*dm.width]
}

// Set stores the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[x+y*dm.width] = val
}

// ValidCount returns how many pixels hold a measurement.
func (dm *DepthMap) ValidCount() int {
	n := 0
	for _, d := range dm.data {
		if d != 0 {
			n++
		}
	}
	return n
}

// ToGray16Picture converts the map to a 16 bit grayscale image with one depth unit per gray level.
func (dm *DepthMap) ToGray16Picture() *image.Gray16 {
	img := image.NewGray16(dm.Bounds())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(dm.GetDepth(x, y))})
		}
	}
	return img
}

// ConvertImageToDepthMap reads depth from a grayscale image. 16 bit images keep their values, any
// other image goes through the 16 bit gray color model.
func ConvertImageToDepthMap(img image.Image) (*DepthMap, error) {
	if img == nil {
		return nil, errors.New("no image to convert to a depth map")
	}
	b := img.Bounds()
	dm := NewEmptyDepthMap(b.Dx(), b.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			g, _ := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			dm.Set(x, y, Depth(g.Y))
		}
	}
	return dm, nil
}

// WriteDepthMapToFile saves the map as a 16 bit grayscale PNG.
func WriteDepthMapToFile(dm *DepthMap, fn string) error {
	return imaging.Save(dm.ToGray16Picture(), fn)
}

// NewDepthMapFromFile loads a depth map saved by WriteDepthMapToFile.
func NewDepthMapFromFile(fn string) (*DepthMap, error) {
	img, err := imaging.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening depth map %q", fn)
	}
	return ConvertImageToDepthMap(img)
}
