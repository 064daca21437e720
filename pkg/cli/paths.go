package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigFile is the configuration filename inside the config dir.
const DefaultConfigFile = "config.yaml"

// Paths locates the per-user directories of an application.
type Paths struct {
	// AppName is the application name
	AppName string

	// ConfigRoot is the platform config dir (os.UserConfigDir)
	ConfigRoot string

	// CacheRoot is the platform cache dir (os.UserCacheDir)
	CacheRoot string
}

// NewPaths resolves the platform directories for appName.
func NewPaths(appName string) (*Paths, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache directory: %w", err)
	}
	return &Paths{AppName: appName, ConfigRoot: cfg, CacheRoot: cache}, nil
}

// ConfigDir returns <config>/<app>.
func (p *Paths) ConfigDir() string {
	return filepath.Join(p.ConfigRoot, p.AppName)
}

// ConfigFile returns <config>/<app>/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir(), DefaultConfigFile)
}

// CacheDir returns <cache>/<app>.
func (p *Paths) CacheDir() string {
	return filepath.Join(p.CacheRoot, p.AppName)
}

// ModelsDir returns the directory downloaded models are kept in.
func (p *Paths) ModelsDir() string {
	return filepath.Join(p.CacheDir(), "models")
}

// RecordingsDir returns the default directory for recorded clips.
func (p *Paths) RecordingsDir() string {
	return filepath.Join(p.CacheDir(), "recordings")
}

// DataDir returns <config>/<app>/data, where predictions are stored.
func (p *Paths) DataDir() string {
	return filepath.Join(p.ConfigDir(), "data")
}

// DataPath returns a path within the data directory
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir(), name)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func (p *Paths) EnsureConfigDir() error {
	return os.MkdirAll(p.ConfigDir(), 0755)
}

// EnsureDataDir creates the data directory if it doesn't exist
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0755)
}
