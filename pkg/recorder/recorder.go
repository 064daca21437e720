// Package recorder captures fixed-length clips from a microphone and writes
// them as 16-bit PCM WAV files.
//
// A Recorder moves through these states:
//
//	Uninitialized --Setup--> Ready --Record/ContinuouslyRecord--> Recording
//	Recording --done/cancel--> Ready
//	any --TearDown--> TornDown --Setup--> Ready
//
// Only one capture runs at a time. The continuous loop owns the open stream
// and hands clips to the caller over a bounded channel, so a slow consumer
// stalls capture instead of growing memory.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/crybaby/pkg/audio/wav"
)

// ErrBusy is returned when a capture is requested while one is running.
var ErrBusy = errors.New("recorder: capture already running")

// State is the lifecycle state of a Recorder.
type State int

const (
	Uninitialized State = iota
	Ready
	Recording
	TornDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Recording:
		return "recording"
	case TornDown:
		return "torn down"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Clip is a recorded WAV file.
type Clip struct {
	Path       string        `json:"path" yaml:"path"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	Channels   int           `json:"channels" yaml:"channels"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = l
	}
}

// Recorder captures clips from a Device.
type Recorder struct {
	settings Settings
	open     OpenFunc
	logger   *slog.Logger

	// lifeMu serialises Setup, TearDown and capture start.
	lifeMu sync.Mutex

	mu      sync.Mutex
	state   State
	device  Device
	cancel  context.CancelFunc
	done    chan struct{}
	loopErr error

	overflows atomic.Int64
}

// New creates a Recorder. The device is not acquired until Setup or the
// first capture.
func New(open OpenFunc, settings Settings, opts ...Option) (*Recorder, error) {
	if open == nil {
		return nil, errors.New("recorder: nil open func")
	}
	if settings.TempDir == "" {
		settings.TempDir = os.TempDir()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	r := &Recorder{
		settings: settings,
		open:     open,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Settings returns the capture settings.
func (r *Recorder) Settings() Settings {
	return r.settings
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Overflows returns how many input overflows have been tolerated.
func (r *Recorder) Overflows() int64 {
	return r.overflows.Load()
}

// Err returns the error that ended the last continuous capture, or nil if it
// ended by cancellation.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loopErr
}

// Setup acquires the capture device. It is a no-op when the device is
// already held.
func (r *Recorder) Setup() error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	return r.setup()
}

func (r *Recorder) setup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device != nil {
		return nil
	}
	dev, err := r.open()
	if err != nil {
		return &DeviceError{Op: "setup", Err: err}
	}
	r.device = dev
	r.state = Ready
	r.logger.Debug("recorder: device acquired")
	return nil
}

// TearDown stops any running capture, waits for it to release its stream and
// releases the device. It is safe to call repeatedly.
func (r *Recorder) TearDown() error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return nil
	}
	err := r.device.Close()
	r.device = nil
	r.state = TornDown
	r.logger.Debug("recorder: device released")
	if err != nil {
		return &DeviceError{Op: "teardown", Err: err}
	}
	return nil
}

// start acquires the device if needed, opens a stream and moves to
// Recording. The returned context is cancelled by TearDown.
func (r *Recorder) start(ctx context.Context) (context.Context, Stream, chan struct{}, error) {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	r.mu.Lock()
	busy := r.state == Recording
	r.mu.Unlock()
	if busy {
		return nil, nil, nil, ErrBusy
	}

	if err := r.setup(); err != nil {
		return nil, nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stream, err := r.device.Open(r.settings.Format(), r.settings.FramesPerBuffer)
	if err != nil {
		return nil, nil, nil, &DeviceError{Op: "open stream", Err: err}
	}
	r.logger.Debug("recorder: stream opened",
		"rate", r.settings.SampleRate,
		"channels", r.settings.Channels,
		"frames_per_buffer", r.settings.FramesPerBuffer)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.state = Recording
	r.cancel = cancel
	r.done = done
	r.loopErr = nil
	return ctx, stream, done, nil
}

// finish closes the stream and returns to Ready.
func (r *Recorder) finish(stream Stream, done chan struct{}, loopErr error) {
	if err := stream.Close(); err != nil {
		r.logger.Warn("recorder: close stream", "error", err)
	}

	r.mu.Lock()
	if r.state == Recording {
		r.state = Ready
	}
	r.cancel()
	r.cancel = nil
	r.done = nil
	r.loopErr = loopErr
	r.mu.Unlock()

	close(done)
}

// Record captures one clip and writes it to a new file in TempDir.
func (r *Recorder) Record(ctx context.Context) (Clip, error) {
	ctx, stream, done, err := r.start(ctx)
	if err != nil {
		return Clip{}, err
	}

	samples, err := r.capture(ctx, stream)
	r.finish(stream, done, nil)
	if err != nil {
		return Clip{}, err
	}
	return r.write(samples)
}

// ContinuouslyRecord starts capturing clips back to back. Each clip is sent
// on the returned channel once its file is written. The channel is closed
// when capture stops: on ctx cancellation, TearDown, or a device error (see
// Err).
func (r *Recorder) ContinuouslyRecord(ctx context.Context) (<-chan Clip, error) {
	ctx, stream, done, err := r.start(ctx)
	if err != nil {
		return nil, err
	}

	clips := make(chan Clip, r.settings.QueueSize)
	go r.loop(ctx, stream, done, clips)
	return clips, nil
}

func (r *Recorder) loop(ctx context.Context, stream Stream, done chan struct{}, clips chan<- Clip) {
	var loopErr error
	defer func() {
		r.finish(stream, done, loopErr)
		close(clips)
	}()

	r.logger.Debug("recorder: continuous capture started")
	for {
		samples, err := r.capture(ctx, stream)
		if err != nil {
			if ctx.Err() == nil {
				loopErr = err
				r.logger.Error("recorder: capture stopped", "error", err)
			}
			return
		}

		clip, err := r.write(samples)
		if err != nil {
			loopErr = err
			r.logger.Error("recorder: capture stopped", "error", err)
			return
		}

		select {
		case clips <- clip:
		case <-ctx.Done():
			os.Remove(clip.Path)
			return
		}
	}
}

// capture reads one clip worth of buffers.
func (r *Recorder) capture(ctx context.Context, stream Stream) ([]int16, error) {
	bufLen := r.settings.FramesPerBuffer * r.settings.Channels
	buffers := r.settings.Buffers()
	samples := make([]int16, 0, buffers*bufLen)
	buf := make([]int16, bufLen)

	for i := 0; i < buffers; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := stream.Read(buf)
		if err != nil {
			if !errors.Is(err, ErrInputOverflowed) {
				return nil, &DeviceError{Op: "read", Err: err}
			}
			r.overflows.Add(1)
			r.logger.Debug("recorder: input overflowed")
		}
		samples = append(samples, buf[:n]...)
	}
	return samples, nil
}

func (r *Recorder) write(samples []int16) (Clip, error) {
	format := r.settings.Format()
	path := filepath.Join(r.settings.TempDir, uuid.NewString()+".wav")
	if err := wav.WriteFile(path, format, samples); err != nil {
		return Clip{}, fmt.Errorf("recorder: write clip: %w", err)
	}
	clip := Clip{
		Path:       path,
		SampleRate: format.SampleRate(),
		Channels:   format.Channels(),
		Duration:   format.Duration(int64(len(samples) / format.Channels())),
	}
	r.logger.Debug("recorder: clip written", "path", path, "duration", clip.Duration)
	return clip, nil
}
