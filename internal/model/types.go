package model

// Metadata describes the exported steering model. It is read from the JSON
// file that sits next to the .onnx artifact.
type Metadata struct {
	InputShape  []int64   `json:"input_shape"`
	OutputShape []int64   `json:"output_shape"`
	InputName   string    `json:"input_name,omitempty"`
	OutputName  string    `json:"output_name,omitempty"`
	ImageSize   int       `json:"image_size,omitempty"`
	ImageWidth  int       `json:"image_width,omitempty"`
	ImageHeight int       `json:"image_height,omitempty"`
	Mean        []float32 `json:"mean,omitempty"`
	Std         []float32 `json:"std,omitempty"`
}

// Prediction is the raw output of one inference run.
type Prediction struct {
	Values []float32
}

// SteerResponse is returned by the upload endpoint. Steering is null when
// the model produced NaN or an infinity; Text always carries the value.
type SteerResponse struct {
	Steering *float64 `json:"steering"`
	Text     string   `json:"text"`
}
