// Package config loads the crybaby configuration file.
//
// The file lives under os.UserConfigDir():
//
//	~/Library/Application Support/crybaby/config.yaml   (macOS)
//	~/.config/crybaby/config.yaml                       (Linux)
//	%AppData%/crybaby/config.yaml                       (Windows)
//
// Missing keys fall back to Default. The Hugging Face token is never stored
// in the file; it is read from HUGGINGFACE_TOKEN.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/haivivi/crybaby/pkg/audiofile"
	"github.com/haivivi/crybaby/pkg/cli"
	"github.com/haivivi/crybaby/pkg/recorder"
	"github.com/haivivi/crybaby/pkg/repository"
	"github.com/haivivi/crybaby/pkg/service"
)

// AppName is the directory name under the platform config and cache dirs.
const AppName = "crybaby"

// TokenEnv is the environment variable holding the model hub token.
const TokenEnv = "HUGGINGFACE_TOKEN"

// Model sources.
const (
	SourceLocal = "local"
	SourceHub   = "hub"
)

// Archive kinds.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// Config is the full application configuration.
type Config struct {
	Audio      audiofile.Settings `json:"audio" yaml:"audio"`
	Recording  Recording          `json:"recording" yaml:"recording"`
	Loudness   service.Loudness   `json:"loudness" yaml:"loudness"`
	Classifier Classifier         `json:"classifier" yaml:"classifier"`
	Repository Repository         `json:"repository" yaml:"repository"`
	Archive    Archive            `json:"archive" yaml:"archive"`
	Log        Log                `json:"log" yaml:"log"`

	// FailFast stops continuous evaluation on the first clip error.
	FailFast bool `json:"fail_fast" yaml:"fail_fast"`
}

// Recording controls microphone capture.
type Recording struct {
	SampleRate      int     `json:"sample_rate" yaml:"sample_rate" validate:"gt=0"`
	Channels        int     `json:"channels" yaml:"channels" validate:"oneof=1 2"`
	FramesPerBuffer int     `json:"frames_per_buffer" yaml:"frames_per_buffer" validate:"gt=0"`
	Duration        float64 `json:"duration" yaml:"duration" validate:"gt=0"`
	TempDir         string  `json:"temp_dir" yaml:"temp_dir" validate:"required"`
	QueueSize       int     `json:"queue_size" yaml:"queue_size" validate:"gte=0"`
}

// Settings converts r for the recorder. Duration is in seconds.
func (r Recording) Settings() recorder.Settings {
	return recorder.Settings{
		SampleRate:      r.SampleRate,
		Channels:        r.Channels,
		FramesPerBuffer: r.FramesPerBuffer,
		Duration:        time.Duration(r.Duration * float64(time.Second)),
		TempDir:         r.TempDir,
		QueueSize:       r.QueueSize,
	}
}

// Classifier selects and configures the model.
type Classifier struct {
	Source    string `json:"source" yaml:"source" validate:"oneof=local hub"`
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty" validate:"required_if=Source local"`

	HubRepo     string `json:"hub_repo,omitempty" yaml:"hub_repo,omitempty" validate:"required_if=Source hub"`
	HubFile     string `json:"hub_file,omitempty" yaml:"hub_file,omitempty" validate:"required_if=Source hub"`
	HubRevision string `json:"hub_revision,omitempty" yaml:"hub_revision,omitempty"`
	HubToken    string `json:"-" yaml:"-"`

	ONNXLibrary    string `json:"onnx_library,omitempty" yaml:"onnx_library,omitempty"`
	InputName      string `json:"input_name,omitempty" yaml:"input_name,omitempty"`
	OutputName     string `json:"output_name,omitempty" yaml:"output_name,omitempty"`
	IntraOpThreads int    `json:"intra_op_threads,omitempty" yaml:"intra_op_threads,omitempty" validate:"gte=0"`

	// AlertThreshold is the score from which a prediction is highlighted.
	AlertThreshold float64 `json:"alert_threshold" yaml:"alert_threshold" validate:"gte=0,lte=1"`
}

// Repository selects where predictions are saved.
type Repository struct {
	Kind string `json:"kind" yaml:"kind" validate:"oneof=csv json badger sqlite"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Archive selects where retained clips are copied.
type Archive struct {
	Kind     string `json:"kind" yaml:"kind" validate:"oneof=none local s3"`
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty" validate:"required_if=Kind local"`
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty" validate:"required_if=Kind s3"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`
}

// Log controls the CLI logger.
type Log struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default(paths *cli.Paths) *Config {
	return &Config{
		Audio: audiofile.DefaultSettings(),
		Recording: Recording{
			SampleRate:      44100,
			Channels:        1,
			FramesPerBuffer: 1024,
			Duration:        4,
			TempDir:         paths.RecordingsDir(),
			QueueSize:       8,
		},
		Loudness: service.DefaultLoudness(),
		Classifier: Classifier{
			Source:         SourceHub,
			HubRepo:        "ericcbonet/cry_baby_lite",
			HubFile:        "model.onnx",
			AlertThreshold: 0.5,
		},
		Repository: Repository{Kind: string(repository.KindCSV)},
		Archive:    Archive{Kind: ArchiveNone},
		Log:        Log{Level: "info"},
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. A missing file is not an error.
func Load(path string, paths *cli.Paths, getenv func(string) string) (*Config, error) {
	cfg := Default(paths)
	if err := cli.LoadFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if getenv != nil {
		cfg.Classifier.HubToken = getenv(TokenEnv)
	}
	cfg.fill(paths)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if err := cli.SaveFile(path, cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// fill derives paths left empty in the file.
func (c *Config) fill(paths *cli.Paths) {
	if c.Recording.TempDir == "" {
		c.Recording.TempDir = paths.RecordingsDir()
	}
	if c.Repository.Path == "" {
		c.Repository.Path = paths.DataPath(DefaultRepositoryFile(repository.Kind(c.Repository.Kind)))
	}
	if c.Archive.Kind == ArchiveLocal && c.Archive.Dir == "" {
		c.Archive.Dir = paths.DataPath("archive")
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// DefaultRepositoryFile names the prediction store for kind.
func DefaultRepositoryFile(kind repository.Kind) string {
	switch kind {
	case repository.KindJSON:
		return "predictions.json"
	case repository.KindBadger:
		return "predictions.badger"
	case repository.KindSQLite:
		return "predictions.db"
	default:
		return "predictions.csv"
	}
}

// Validate checks struct constraints and the nested settings.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("config: audio: %w", err)
	}
	if err := c.Recording.Settings().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
