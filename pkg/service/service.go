// Package service runs the evaluation pipeline: clips from the recorder are
// gated by loudness, classified, saved to a repository and optionally
// archived.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/haivivi/crybaby/pkg/classifier"
	"github.com/haivivi/crybaby/pkg/recorder"
	"github.com/haivivi/crybaby/pkg/storage"
)

// ErrAlreadyRunning is returned by ContinuouslyEvaluate while a previous
// pipeline has not finished.
var ErrAlreadyRunning = errors.New("service: evaluation already running")

// Recorder produces clips.
type Recorder interface {
	Record(ctx context.Context) (recorder.Clip, error)
	ContinuouslyRecord(ctx context.Context) (<-chan recorder.Clip, error)
	TearDown() error
}

// LoudnessChecker decides whether a clip is worth classifying.
type LoudnessChecker interface {
	CheckLoudness(path string, thresholdDB float64, sampleRate int) (bool, error)
}

// Repository stores predictions.
type Repository interface {
	Save(ctx context.Context, path string, prediction float64) error
}

// Loudness configures the gate in front of the classifier.
type Loudness struct {
	ThresholdDB float64 `json:"threshold_db" yaml:"threshold_db" validate:"gte=0"`
	SampleRate  int     `json:"sample_rate" yaml:"sample_rate" validate:"gt=0"`
}

// DefaultLoudness returns a 48 dB threshold measured at 16 kHz.
func DefaultLoudness() Loudness {
	return Loudness{ThresholdDB: 48, SampleRate: 16000}
}

// Stats counts what the pipeline has done with the clips it received.
type Stats struct {
	Received   int64 `json:"received" yaml:"received"`
	Discarded  int64 `json:"discarded" yaml:"discarded"`
	Classified int64 `json:"classified" yaml:"classified"`
	Failed     int64 `json:"failed" yaml:"failed"`
}

// Event reports the outcome for one clip.
type Event struct {
	Clip  recorder.Clip
	Loud  bool
	Score float64
	Err   error
}

type config struct {
	loudness Loudness
	failFast bool
	archive  storage.FileStore
	observer func(Event)
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*config)

// WithLoudness overrides the loudness gate.
func WithLoudness(l Loudness) Option {
	return func(c *config) {
		c.loudness = l
	}
}

// WithFailFast makes the first clip error end the pipeline. Wait returns it.
func WithFailFast() Option {
	return func(c *config) {
		c.failFast = true
	}
}

// WithArchive copies every saved clip into store under clips/<name>.
func WithArchive(store storage.FileStore) Option {
	return func(c *config) {
		c.archive = store
	}
}

// WithObserver registers fn to be called from the pipeline goroutine after
// each clip is handled.
func WithObserver(fn func(Event)) Option {
	return func(c *config) {
		c.observer = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Service wires a recorder, a loudness gate, a classifier and a repository.
type Service struct {
	rec  Recorder
	gate LoudnessChecker
	cls  classifier.Classifier
	repo Repository
	cfg  config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	received   atomic.Int64
	discarded  atomic.Int64
	classified atomic.Int64
	failed     atomic.Int64
}

// New creates a Service.
func New(rec Recorder, gate LoudnessChecker, cls classifier.Classifier, repo Repository, opts ...Option) *Service {
	cfg := config{
		loudness: DefaultLoudness(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{rec: rec, gate: gate, cls: cls, repo: repo, cfg: cfg}
}

// EvaluateFromMicrophone records one clip and returns its score. Nothing is
// saved.
func (s *Service) EvaluateFromMicrophone(ctx context.Context) (float64, error) {
	clip, err := s.rec.Record(ctx)
	if err != nil {
		return 0, fmt.Errorf("service: record: %w", err)
	}
	score, err := s.cls.Classify(ctx, clip.Path)
	if err != nil {
		return 0, fmt.Errorf("service: classify %s: %w", clip.Path, err)
	}
	s.cfg.logger.Debug("service: evaluated", "path", clip.Path, "score", score)
	return score, nil
}

// ContinuouslyEvaluate starts continuous capture and the consumer that
// handles each clip. It returns once both are running. Use Stop to end the
// pipeline and Wait to block until the consumer has exited.
func (s *Service) ContinuouslyEvaluate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	clips, err := s.rec.ContinuouslyRecord(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("service: start recording: %w", err)
	}

	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.err = nil
	s.cfg.logger.Info("service: evaluation started",
		"threshold_db", s.cfg.loudness.ThresholdDB,
		"fail_fast", s.cfg.failFast)

	go s.consume(ctx, cancel, clips, done)
	return nil
}

// Stop cancels the pipeline and releases the recording device. Clips
// already queued are still handled before the consumer exits.
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := s.rec.TearDown(); err != nil {
		return fmt.Errorf("service: tear down recorder: %w", err)
	}
	return nil
}

// Wait blocks until the consumer exits and returns the error that ended the
// pipeline, if any. It returns nil immediately when nothing was started.
func (s *Service) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a snapshot of the pipeline counters.
func (s *Service) Stats() Stats {
	return Stats{
		Received:   s.received.Load(),
		Discarded:  s.discarded.Load(),
		Classified: s.classified.Load(),
		Failed:     s.failed.Load(),
	}
}

func (s *Service) consume(ctx context.Context, cancel context.CancelFunc, clips <-chan recorder.Clip, done chan struct{}) {
	var runErr error
	defer func() {
		cancel()
		if runErr == nil {
			if e, ok := s.rec.(interface{ Err() error }); ok {
				runErr = e.Err()
			}
		}
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.err = runErr
		s.mu.Unlock()
		close(done)
		st := s.Stats()
		s.cfg.logger.Info("service: evaluation stopped",
			"received", st.Received,
			"discarded", st.Discarded,
			"classified", st.Classified,
			"failed", st.Failed)
	}()

	// Queued clips are handled even after cancellation.
	work := context.WithoutCancel(ctx)
	for clip := range clips {
		if runErr != nil {
			s.drop(clip)
			continue
		}
		ev := s.process(work, clip)
		if s.cfg.observer != nil {
			s.cfg.observer(ev)
		}
		if ev.Err == nil {
			continue
		}
		s.failed.Add(1)
		s.cfg.logger.Error("service: clip failed", "path", clip.Path, "error", ev.Err)
		if s.cfg.failFast {
			runErr = ev.Err
			cancel()
		}
	}
}

// drop deletes a clip left in the queue after a fail-fast stop.
func (s *Service) drop(clip recorder.Clip) {
	if err := os.Remove(clip.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.cfg.logger.Warn("service: remove skipped clip", "path", clip.Path, "error", err)
		return
	}
	s.cfg.logger.Warn("service: clip skipped after failure", "path", clip.Path)
}

func (s *Service) process(ctx context.Context, clip recorder.Clip) Event {
	s.received.Add(1)
	ev := Event{Clip: clip}
	defer s.forget(clip.Path)

	loud, err := s.gate.CheckLoudness(clip.Path, s.cfg.loudness.ThresholdDB, s.cfg.loudness.SampleRate)
	if err != nil {
		ev.Err = fmt.Errorf("service: check loudness %s: %w", clip.Path, err)
		return ev
	}
	if !loud {
		s.discarded.Add(1)
		if err := os.Remove(clip.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			ev.Err = fmt.Errorf("service: remove quiet clip: %w", err)
			return ev
		}
		s.cfg.logger.Debug("service: quiet clip discarded", "path", clip.Path)
		return ev
	}
	ev.Loud = true

	score, err := s.cls.Classify(ctx, clip.Path)
	if err != nil {
		ev.Err = fmt.Errorf("service: classify %s: %w", clip.Path, err)
		return ev
	}
	ev.Score = score

	if err := s.repo.Save(ctx, clip.Path, score); err != nil {
		ev.Err = fmt.Errorf("service: save prediction: %w", err)
		return ev
	}
	s.classified.Add(1)
	s.cfg.logger.Info("service: prediction saved", "path", clip.Path, "score", score)

	if s.cfg.archive != nil {
		if err := storage.Upload(ctx, s.cfg.archive, clip.Path, storage.ClipKey(clip.Path)); err != nil {
			ev.Err = fmt.Errorf("service: archive: %w", err)
			return ev
		}
	}
	return ev
}

// forget drops decoded audio the gate may have cached for path.
func (s *Service) forget(path string) {
	if f, ok := s.gate.(interface{ Forget(string) }); ok {
		f.Forget(path)
	}
}
