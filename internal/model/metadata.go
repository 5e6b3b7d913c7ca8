package model

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	defaultInputName  = "input"
	defaultOutputName = "output"
)

func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	metadata.applyDefaults()
	if err := metadata.validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = defaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = defaultOutputName
	}
	// image_size is the square shorthand used by older exports
	if m.ImageWidth == 0 {
		m.ImageWidth = m.ImageSize
	}
	if m.ImageHeight == 0 {
		m.ImageHeight = m.ImageSize
	}
}

func (m Metadata) validate() error {
	if len(m.InputShape) == 0 {
		return fmt.Errorf("metadata: input_shape is empty")
	}
	if len(m.OutputShape) == 0 {
		return fmt.Errorf("metadata: output_shape is empty")
	}
	if m.ImageWidth <= 0 || m.ImageHeight <= 0 {
		return fmt.Errorf("metadata: image dimensions must be positive, got %dx%d", m.ImageWidth, m.ImageHeight)
	}
	if want := 3 * m.ImageWidth * m.ImageHeight; m.InputSize() != want {
		return fmt.Errorf("metadata: input_shape %v holds %d values, image needs %d", m.InputShape, m.InputSize(), want)
	}
	if len(m.Mean) != len(m.Std) || (len(m.Mean) != 0 && len(m.Mean) != 3) {
		return fmt.Errorf("metadata: mean and std must both hold 3 values or be omitted")
	}
	for _, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("metadata: std contains zero")
		}
	}
	return nil
}

// InputSize is the number of float32 values the model input tensor holds.
func (m Metadata) InputSize() int {
	size := 1
	for _, dim := range m.InputShape {
		size *= int(dim)
	}
	return size
}
