// Package onnxmodel serves a cry classifier through ONNX Runtime.
//
// Both the full and the lite model variants are exported to ONNX and loaded
// the same way; only the file differs.
package onnxmodel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/haivivi/crybaby/pkg/classifier"
)

// Config describes how to load a model.
type Config struct {
	// LibraryPath is the onnxruntime shared library. Empty uses the
	// platform default search path.
	LibraryPath string
	// ModelPath is the .onnx file.
	ModelPath string
	// InputName and OutputName select the tensors to bind. Empty names are
	// read from the model's first input and output.
	InputName  string
	OutputName string
	// IntraOpThreads bounds the thread pool; 0 uses all cores.
	IntraOpThreads int
}

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 && !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnxmodel: failed to initialize ONNX environment: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs > 0 {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Model is a loaded ONNX session.
type Model struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inputShape []int64
}

var _ classifier.Model = (*Model)(nil)

// Load creates an inference session for cfg.ModelPath.
func Load(cfg Config) (*Model, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnxmodel: empty model path")
	}
	if err := acquireEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	m, err := load(cfg)
	if err != nil {
		releaseEnvironment()
		return nil, err
	}
	slog.Debug("onnxmodel: loaded",
		"path", cfg.ModelPath,
		"input", m.inputName,
		"output", m.outputName,
		"shape", m.inputShape)
	return m, nil
}

func load(cfg Config) (*Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnxmodel: read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("onnxmodel: model has no inputs or outputs")
	}

	in := inputs[0]
	if cfg.InputName != "" {
		found := false
		for _, info := range inputs {
			if info.Name == cfg.InputName {
				in, found = info, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("onnxmodel: input %q not found", cfg.InputName)
		}
	}
	outName := outputs[0].Name
	if cfg.OutputName != "" {
		outName = cfg.OutputName
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnxmodel: failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("onnxmodel: failed to set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		slog.Warn("onnxmodel: failed to set thread count", "error", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{in.Name},
		[]string{outName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnxmodel: failed to create session: %w", err)
	}

	return &Model{
		session:    session,
		inputName:  in.Name,
		outputName: outName,
		inputShape: []int64(in.Dimensions),
	}, nil
}

// InputShape implements classifier.Model.
func (m *Model) InputShape() []int64 {
	return m.inputShape
}

// Predict implements classifier.Model.
func (m *Model) Predict(input []float32, shape []int64) ([]float32, []int64, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, errors.New("output tensor is not float32 type")
	}

	// Copy before the tensor is destroyed.
	data := make([]float32, len(outputTensor.GetData()))
	copy(data, outputTensor.GetData())
	return data, []int64(outputTensor.GetShape()), nil
}

// Close releases the session.
func (m *Model) Close() error {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return releaseEnvironment()
}
