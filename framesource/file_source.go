package framesource

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/holo/rimage"
)

// FileSource serves fixed frames, typically the mean depth and color reference images of a
// calibrated camera. Frames can be replaced while serving.
type FileSource struct {
	mu    sync.RWMutex
	depth []uint16
	jpeg  []byte
}

// NewFileSource loads a 16-bit depth image and a color image and serves them as the latest frames.
func NewFileSource(depthPath, colorPath string, width, height int) (*FileSource, error) {
	fs := &FileSource{}
	if depthPath != "" {
		dm, err := rimage.ReadDepthMapFromFile(depthPath, width, height)
		if err != nil {
			return nil, err
		}
		fs.SetDepth(dm.Samples())
	}
	if colorPath != "" {
		img, err := rimage.ReadImageFromFile(colorPath)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, errors.Wrapf(err, "cannot encode %q as jpeg", colorPath)
		}
		fs.SetJPEG(buf.Bytes())
	}
	return fs, nil
}

// SetDepth replaces the served depth frame.
func (fs *FileSource) SetDepth(samples []uint16) {
	cp := make([]uint16, len(samples))
	copy(cp, samples)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.depth = cp
}

// SetJPEG replaces the served color frame.
func (fs *FileSource) SetJPEG(data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.jpeg = data
}

// LatestDepthFrame returns a copy of the current depth frame.
func (fs *FileSource) LatestDepthFrame(ctx context.Context) ([]uint16, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.depth == nil {
		return nil, ErrNoFrame
	}
	cp := make([]uint16, len(fs.depth))
	copy(cp, fs.depth)
	return cp, nil
}

// LatestColorFrame returns the current color frame.
func (fs *FileSource) LatestColorFrame(ctx context.Context) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.jpeg == nil {
		return nil, ErrNoFrame
	}
	return fs.jpeg, nil
}

// Close does nothing.
func (fs *FileSource) Close(ctx context.Context) error {
	return nil
}
