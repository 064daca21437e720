package commands

import (
	"github.com/spf13/cobra"
)

// classification is one row of classify output.
type classification struct {
	Path  string  `json:"path" yaml:"path"`
	Score float64 `json:"score" yaml:"score"`
	Cry   bool    `json:"cry" yaml:"cry"`
	Error string  `json:"error,omitempty" yaml:"error,omitempty"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <wav>...",
	Short: "Score existing WAV files",
	Long: `Score one or more WAV files with the configured model.

Files must match audio.duration after rounding to 0.1 s. A file that cannot
be scored is reported with its error; the command fails if any file failed.

Examples:
  crybaby classify clip.wav
  crybaby classify --format json *.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, p, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		af, err := newAudioFile()
		if err != nil {
			return err
		}
		defer af.Close()

		cls, m, err := newClassifier(ctx, cfg, p, af)
		if err != nil {
			return err
		}
		defer m.Close()

		results := make([]classification, 0, len(args))
		var firstErr error
		for _, path := range args {
			r := classification{Path: path}
			score, err := cls.Classify(ctx, path)
			if err != nil {
				r.Error = err.Error()
				if firstErr == nil {
					firstErr = err
				}
			} else {
				r.Score = score
				r.Cry = score >= cfg.Classifier.AlertThreshold
			}
			results = append(results, r)
		}
		if err := outputResult(results); err != nil {
			return err
		}
		return firstErr
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
