// Package classifier scores audio clips with a binary cry/no-cry model.
//
// A Spectrogram classifier turns a clip into a log-mel tensor, reshapes it
// to the model's (1, mels, frames, 1) input and returns the single output
// value as the probability that the clip contains a baby crying.
package classifier

import (
	"context"
	"fmt"
	"slices"

	"github.com/haivivi/crybaby/pkg/audiofile"
)

// Classifier scores a clip. Scores are in [0, 1] for a sigmoid model.
type Classifier interface {
	Classify(ctx context.Context, path string) (float64, error)
}

// Model is an inference backend with one float32 input and one float32
// output.
type Model interface {
	// InputShape returns the declared input shape. Non-positive dimensions
	// are dynamic.
	InputShape() []int64
	// Predict runs the model and returns the output data and shape.
	Predict(input []float32, shape []int64) ([]float32, []int64, error)
}

// Extractor builds feature tensors. *audiofile.Client implements it.
type Extractor interface {
	ExtractMelSpectrogram(path string, s audiofile.Settings) (*audiofile.Tensor, error)
}

// ShapeError reports a tensor that does not fit the model.
type ShapeError struct {
	Kind string // "input" or "output"
	Got  []int64
	Want []int64
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("classifier: %s shape %v, want %v", e.Kind, e.Got, e.Want)
}

// Spectrogram classifies clips from their log-mel spectrogram.
type Spectrogram struct {
	extractor Extractor
	settings  audiofile.Settings
	model     Model
}

var _ Classifier = (*Spectrogram)(nil)

// New returns a classifier that extracts features with settings and scores
// them with model.
func New(extractor Extractor, settings audiofile.Settings, model Model) (*Spectrogram, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	rows, cols := settings.TargetShape()
	want := inputShape(rows, cols)
	if !shapeMatches(want, model.InputShape()) {
		return nil, &ShapeError{Kind: "input", Got: want, Want: model.InputShape()}
	}
	return &Spectrogram{
		extractor: extractor,
		settings:  settings,
		model:     model,
	}, nil
}

// Settings returns the preprocessing settings the model is served with.
func (s *Spectrogram) Settings() audiofile.Settings {
	return s.settings
}

// Classify implements Classifier.
func (s *Spectrogram) Classify(ctx context.Context, path string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tensor, err := s.extractor.ExtractMelSpectrogram(path, s.settings)
	if err != nil {
		return 0, err
	}

	shape := inputShape(tensor.Rows, tensor.Cols)
	if !shapeMatches(shape, s.model.InputShape()) {
		return 0, &ShapeError{Kind: "input", Got: shape, Want: s.model.InputShape()}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out, outShape, err := s.model.Predict(tensor.Data, shape)
	if err != nil {
		return 0, fmt.Errorf("classifier: predict %s: %w", path, err)
	}
	if !slices.Equal(outShape, []int64{1, 1}) || len(out) != 1 {
		return 0, &ShapeError{Kind: "output", Got: outShape, Want: []int64{1, 1}}
	}
	return float64(out[0]), nil
}

// inputShape adds the batch and channel dimensions: (1, rows, cols, 1).
func inputShape(rows, cols int) []int64 {
	return []int64{1, int64(rows), int64(cols), 1}
}

func shapeMatches(got, want []int64) bool {
	if len(want) == 0 {
		return true
	}
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if want[i] > 0 && got[i] != want[i] {
			return false
		}
	}
	return true
}
