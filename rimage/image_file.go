package rimage

import (
	"bytes"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ColorImageExtensions are tried in order when looking up a color frame by name.
var ColorImageExtensions = []string{".jpeg", ".jpg"}

// FindColorImage returns the path of dir/stem with the first extension in ColorImageExtensions
// that exists.
func FindColorImage(dir, stem string) (string, error) {
	for _, ext := range ColorImageExtensions {
		fn := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(fn); err == nil {
			return fn, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", errors.Wrapf(os.ErrNotExist, "no color image %q in %q", stem, dir)
}

// ReadColorImage finds and decodes dir/stem.
func ReadColorImage(dir, stem string) (image.Image, error) {
	fn, err := FindColorImage(dir, stem)
	if err != nil {
		return nil, err
	}
	return NewImageFromFile(fn)
}

// NewImageFromFile decodes any image format registered with the standard library.
func NewImageFromFile(fn string) (image.Image, error) {
	img, err := imaging.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %q", fn)
	}
	return img, nil
}

// EncodeJPEG returns img as JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
