package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/haivivi/crybaby/cmd/crybaby/internal/config"
	"github.com/haivivi/crybaby/pkg/audiofile"
	"github.com/haivivi/crybaby/pkg/classifier"
	"github.com/haivivi/crybaby/pkg/classifier/onnxmodel"
	"github.com/haivivi/crybaby/pkg/cli"
	"github.com/haivivi/crybaby/pkg/modelhub"
	"github.com/haivivi/crybaby/pkg/recorder"
	"github.com/haivivi/crybaby/pkg/repository"
	"github.com/haivivi/crybaby/pkg/storage"
)

// model is a loaded inference backend.
type model interface {
	classifier.Model
	Close() error
}

// loadModel opens the model file at path. Tests replace it.
var loadModel = func(path string, c config.Classifier) (model, error) {
	return onnxmodel.Load(onnxmodel.Config{
		LibraryPath:    c.ONNXLibrary,
		ModelPath:      path,
		InputName:      c.InputName,
		OutputName:     c.OutputName,
		IntraOpThreads: c.IntraOpThreads,
	})
}

func newAudioFile() (*audiofile.Client, error) {
	return audiofile.New(audiofile.WithLogger(slog.Default()))
}

// resolveModel returns the local model file, downloading it from the hub
// when the source is "hub".
func resolveModel(ctx context.Context, cfg *config.Config, p *cli.Paths) (string, error) {
	c := cfg.Classifier
	if c.Source == config.SourceLocal {
		return c.ModelPath, nil
	}
	opts := []modelhub.Option{modelhub.WithBearerToken(c.HubToken)}
	if c.HubRevision != "" {
		opts = append(opts, modelhub.WithRevision(c.HubRevision))
	}
	path, err := modelhub.NewClient(p.ModelsDir(), opts...).Fetch(ctx, c.HubRepo, c.HubFile)
	if err != nil {
		return "", fmt.Errorf("fetch model %s/%s: %w (set %s)", c.HubRepo, c.HubFile, err, config.TokenEnv)
	}
	return path, nil
}

// newClassifier loads the model and binds it to the audio settings. The
// returned model must be closed by the caller.
func newClassifier(ctx context.Context, cfg *config.Config, p *cli.Paths, ext classifier.Extractor) (*classifier.Spectrogram, model, error) {
	path, err := resolveModel(ctx, cfg, p)
	if err != nil {
		return nil, nil, err
	}
	m, err := loadModel(path, cfg.Classifier)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	cls, err := classifier.New(ext, cfg.Audio, m)
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	return cls, m, nil
}

func openRepository(cfg *config.Config) (repository.Repository, error) {
	path := cfg.Repository.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create repository directory: %w", err)
	}
	return repository.Open(repository.Kind(cfg.Repository.Kind), path, repository.WithLogger(slog.Default()))
}

// openArchive returns nil when archiving is disabled.
func openArchive(ctx context.Context, a config.Archive) (storage.FileStore, error) {
	switch a.Kind {
	case config.ArchiveLocal:
		return storage.NewLocal(a.Dir)
	case config.ArchiveS3:
		var opts []func(*awsconfig.LoadOptions) error
		if a.Region != "" {
			opts = append(opts, awsconfig.WithRegion(a.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if a.Endpoint != "" {
				o.BaseEndpoint = aws.String(a.Endpoint)
				o.UsePathStyle = true
			}
		})
		return storage.NewS3(client, a.Bucket, a.Prefix), nil
	default:
		return nil, nil
	}
}

func newRecorder(cfg *config.Config) (*recorder.Recorder, error) {
	if openDevice == nil {
		return nil, errNoAudioBackend
	}
	settings := cfg.Recording.Settings()
	if err := os.MkdirAll(settings.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("create recording directory: %w", err)
	}
	return recorder.New(openDevice, settings, recorder.WithLogger(slog.Default()))
}
