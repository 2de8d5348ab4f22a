package rimage

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/image/tiff"
)

// ReadImageFromFile decodes the image at path. TIFFs go through x/image/tiff so 16-bit single
// channel images come back as *image.Gray16; everything else uses the registered decoders.
func ReadImageFromFile(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		img, err := tiff.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode tiff %q", path)
		}
		return img, nil
	default:
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode image %q", path)
		}
		return img, nil
	}
}

// ReadDepthMapFromFile reads a 16-bit single channel image and checks its dimensions.
func ReadDepthMapFromFile(path string, width, height int) (*DepthMap, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	dm, err := ConvertImageToDepthMap(img)
	if err != nil {
		return nil, errors.Wrapf(err, "%q is not a 16-bit depth image", path)
	}
	if dm.Width() != width || dm.Height() != height {
		return nil, errors.Errorf("depth image %q is %dx%d, expected %dx%d", path, dm.Width(), dm.Height(), width, height)
	}
	return dm, nil
}

// ReadColorFromFile reads a color reference image into a width x height BGRA buffer.
func ReadColorFromFile(path string, width, height int) (*BGRA, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewBGRAFromImage(img, width, height), nil
}

// WriteImageToFile encodes img by extension (.png or .tif/.tiff).
func WriteImageToFile(path string, img image.Image) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if dm, ok := img.(*DepthMap); ok {
		img = dm.ToGray16()
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	case ".png":
		return png.Encode(f, img)
	default:
		return errors.Errorf("don't know how to write %q", path)
	}
}
