package model

import (
	"image"

	"github.com/nfnt/resize"
)

// Preprocess converts an image to the CHW float layout the model was
// exported with: RGB scaled to [0,1], then normalized per channel when the
// metadata carries mean/std.
func (m Metadata) Preprocess(img image.Image) []float32 {
	resized := resize.Resize(uint(m.ImageWidth), uint(m.ImageHeight), img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	inputData := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = m.normalize(0, float32(r)/65535.0)
			inputData[plane+pixelIndex] = m.normalize(1, float32(g)/65535.0)
			inputData[2*plane+pixelIndex] = m.normalize(2, float32(b)/65535.0)
		}
	}

	return inputData
}

func (m Metadata) normalize(channel int, v float32) float32 {
	if len(m.Mean) != 3 {
		return v
	}
	return (v - m.Mean[channel]) / m.Std[channel]
}
