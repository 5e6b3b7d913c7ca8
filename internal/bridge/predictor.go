package bridge

import (
	"errors"
	"image"

	"github.com/Brownie44l1/steer-bridge/internal/model"
)

var ErrEmptyOutput = errors.New("model returned an empty output tensor")

type Predictor interface {
	Predict(img image.Image) (float64, error)
}

// Model runs inference on a preprocessed input tensor. *model.Server
// implements it.
type Model interface {
	Predict(inputData []float32) (*model.Prediction, error)
}

// ONNXPredictor preprocesses a frame with the model's metadata and reads the
// steering angle from the first output value.
type ONNXPredictor struct {
	Model    Model
	Metadata model.Metadata
}

func NewONNXPredictor(server *model.Server) ONNXPredictor {
	return ONNXPredictor{Model: server, Metadata: server.Metadata}
}

func (p ONNXPredictor) Predict(img image.Image) (float64, error) {
	prediction, err := p.Model.Predict(p.Metadata.Preprocess(img))
	if err != nil {
		return 0, err
	}
	return Steering(prediction)
}

// Steering extracts element zero of the prediction payload. The value is
// returned as is, NaN included.
func Steering(p *model.Prediction) (float64, error) {
	if p == nil || len(p.Values) == 0 {
		return 0, ErrEmptyOutput
	}
	return float64(p.Values[0]), nil
}
