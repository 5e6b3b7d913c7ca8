package model

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrClosed is returned by Predict once the session has been destroyed.
var ErrClosed = errors.New("model server is closed")

// Server owns the ONNX Runtime session for the steering model. Predict is
// safe to call from several goroutines; runs are serialized because the
// input and output tensors are shared.
type Server struct {
	mu           sync.Mutex
	closed       bool
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewServer loads the model at modelPath. libPath points at the
// onnxruntime shared library; empty keeps the library default.
func NewServer(modelPath, metadataPath, libPath string) (*Server, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Server) Predict(inputData []float32) (*Prediction, error) {
	if len(inputData) != s.Metadata.InputSize() {
		return nil, fmt.Errorf("expected %d input values, got %d", s.Metadata.InputSize(), len(inputData))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An upload may still be queued on mu after Close has run.
	if s.closed {
		return nil, ErrClosed
	}

	copy(s.inputTensor.GetData(), inputData)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// The output tensor is reused by the next run.
	out := s.outputTensor.GetData()
	values := make([]float32, len(out))
	copy(values, out)

	return &Prediction{Values: values}, nil
}

// Close destroys the session and tensors. It is safe to call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
		// NewServer only hands out a session once the environment is up.
		ort.DestroyEnvironment()
	}
}
