package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
)

// ErrConsume marks a frame that decoded fine but could not be removed.
var ErrConsume = errors.New("capture: failed to remove consumed frame")

// Loader reads the capture file at Path. The whole file is read before
// decoding so a producer still writing it yields a decode error rather than
// a half-filled image.
type Loader struct {
	Path string
	// Consume removes the file after it has been decoded.
	Consume bool
}

func (l Loader) Load() (image.Image, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.Path, err)
	}

	if l.Consume {
		if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return img, fmt.Errorf("%w: %v", ErrConsume, err)
		}
	}
	return img, nil
}

// RemoveStale deletes a capture left over from an earlier run.
func RemoveStale(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
