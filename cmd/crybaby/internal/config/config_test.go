package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/crybaby/pkg/cli"
	"github.com/haivivi/crybaby/pkg/repository"
)

func testPaths(t *testing.T) *cli.Paths {
	t.Helper()
	root := t.TempDir()
	return &cli.Paths{
		AppName:    AppName,
		ConfigRoot: filepath.Join(root, "config"),
		CacheRoot:  filepath.Join(root, "cache"),
	}
}

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	paths := testPaths(t)
	cfg, err := Load(paths.ConfigFile(), paths, env(map[string]string{TokenEnv: "hf_secret"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.MelBands != 128 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Loudness.ThresholdDB != 48 {
		t.Errorf("threshold = %v", cfg.Loudness.ThresholdDB)
	}
	if cfg.Classifier.HubToken != "hf_secret" {
		t.Errorf("token not read from environment")
	}
	if want := paths.DataPath("predictions.csv"); cfg.Repository.Path != want {
		t.Errorf("repository path = %q, want %q", cfg.Repository.Path, want)
	}
	if cfg.Recording.TempDir != paths.RecordingsDir() {
		t.Errorf("temp dir = %q", cfg.Recording.TempDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	paths := testPaths(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
loudness:
  threshold_db: 60
recording:
  duration: 2.5
classifier:
  source: local
  model_path: /models/cry.onnx
repository:
  kind: sqlite
archive:
  kind: local
log:
  level: DEBUG
fail_fast: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, paths, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Loudness.ThresholdDB != 60 || cfg.Loudness.SampleRate != 16000 {
		t.Errorf("loudness = %+v", cfg.Loudness)
	}
	if got := cfg.Recording.Settings().Duration; got != 2500*time.Millisecond {
		t.Errorf("duration = %v", got)
	}
	if cfg.Recording.SampleRate != 44100 {
		t.Errorf("sample rate lost: %d", cfg.Recording.SampleRate)
	}
	if cfg.Classifier.Source != SourceLocal || cfg.Classifier.ModelPath != "/models/cry.onnx" {
		t.Errorf("classifier = %+v", cfg.Classifier)
	}
	if want := paths.DataPath("predictions.db"); cfg.Repository.Path != want {
		t.Errorf("repository path = %q, want %q", cfg.Repository.Path, want)
	}
	if cfg.Archive.Dir != paths.DataPath("archive") {
		t.Errorf("archive dir = %q", cfg.Archive.Dir)
	}
	if cfg.Log.Level != "debug" || !cfg.FailFast {
		t.Errorf("log = %+v fail_fast = %v", cfg.Log, cfg.FailFast)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown repository", "repository:\n  kind: mongo\n", "Kind"},
		{"local model without path", "classifier:\n  source: local\n", "ModelPath"},
		{"s3 without bucket", "archive:\n  kind: s3\n", "Bucket"},
		{"bad channels", "recording:\n  channels: 3\n", "Channels"},
		{"bad log level", "log:\n  level: loud\n", "Level"},
		{"zero mel bands", "audio:\n  mel_bands: 0\n", "audio"},
		{"bad yaml", "audio: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := testPaths(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path, paths, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTripKeepsTokenOut(t *testing.T) {
	paths := testPaths(t)
	cfg := Default(paths)
	cfg.Classifier.HubToken = "hf_secret"
	cfg.Loudness.ThresholdDB = 55

	if err := Save(paths.ConfigFile(), cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hf_secret") {
		t.Fatal("token written to config file")
	}

	got, err := Load(paths.ConfigFile(), paths, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Loudness.ThresholdDB != 55 {
		t.Errorf("threshold = %v", got.Loudness.ThresholdDB)
	}
}

func TestDefaultRepositoryFile(t *testing.T) {
	for kind, want := range map[string]string{
		"csv":    "predictions.csv",
		"json":   "predictions.json",
		"badger": "predictions.badger",
		"sqlite": "predictions.db",
	} {
		if got := DefaultRepositoryFile(repository.Kind(kind)); got != want {
			t.Errorf("DefaultRepositoryFile(%s) = %q, want %q", kind, got, want)
		}
	}
}
