package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/crybaby/cmd/crybaby/internal/config"
	"github.com/haivivi/crybaby/pkg/cli"
	"github.com/haivivi/crybaby/pkg/recorder"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	modelSource  string
	formatOutput string
	outputFile   string

	// Capture backend, installed by main.
	openDevice  recorder.OpenFunc
	listDevices recorder.ListFunc
)

var errNoAudioBackend = errors.New("no audio capture backend available")

var rootCmd = &cobra.Command{
	Use:   "crybaby",
	Short: "Detect a crying baby from the microphone",
	Long: `crybaby - record short clips from the microphone and score them with a
baby-cry classifier.

Quiet clips are discarded. Loud clips are scored, the score is saved to the
prediction store and the clip is optionally archived to a directory or an
S3 bucket.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/crybaby/config.yaml
  Linux:   ~/.config/crybaby/config.yaml
  Windows: %AppData%/crybaby/config.yaml

The model hub token is read from HUGGINGFACE_TOKEN.

Examples:
  # Write the default configuration
  crybaby config init

  # Score clips until interrupted
  crybaby run

  # Score an existing recording with a local model
  crybaby classify --model-source local recording.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetAudioBackend installs the functions used to acquire and enumerate
// capture devices.
func SetAudioBackend(open recorder.OpenFunc, list recorder.ListFunc) {
	openDevice = open
	listDevices = list
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <config dir>/crybaby/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&modelSource, "model-source", "", "override classifier.source (local or hub)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "yaml", "output format (yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
}

// paths resolves the per-user directories.
func paths() (*cli.Paths, error) {
	p, err := cli.NewPaths(config.AppName)
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	return p, nil
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	p, err := paths()
	if err != nil {
		return "", err
	}
	return p.ConfigFile(), nil
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig() (*config.Config, *cli.Paths, error) {
	p, err := paths()
	if err != nil {
		return nil, nil, err
	}
	path, err := configPath()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path, p, os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	if modelSource != "" {
		cfg.Classifier.Source = modelSource
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return cfg, p, nil
}

// setupLogger installs a text logger on stderr. --verbose forces debug.
func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if path, err := configPath(); err == nil {
		var lc struct {
			Log config.Log `yaml:"log"`
		}
		if cli.LoadFile(path, &lc) == nil {
			_ = level.UnmarshalText([]byte(lc.Log.Level))
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// outputResult writes result in the selected format.
func outputResult(result any) error {
	format, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	})
}
