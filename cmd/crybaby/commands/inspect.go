package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/crybaby/pkg/cli"
)

type inspection struct {
	Path       string       `json:"path" yaml:"path"`
	Size       string       `json:"size" yaml:"size"`
	SampleRate int          `json:"sample_rate" yaml:"sample_rate"`
	Channels   int          `json:"channels" yaml:"channels"`
	Duration   float64      `json:"duration" yaml:"duration"`
	Loud       bool         `json:"loud" yaml:"loud"`
	Tensor     *tensorStats `json:"tensor,omitempty" yaml:"tensor,omitempty"`
	TensorErr  string       `json:"tensor_error,omitempty" yaml:"tensor_error,omitempty"`
}

type tensorStats struct {
	Rows int     `json:"rows" yaml:"rows"`
	Cols int     `json:"cols" yaml:"cols"`
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <wav>",
	Short: "Describe a WAV file and its feature tensor",
	Long: `Print the format of a WAV file, whether it passes the loudness gate and
the shape and statistics of the mel spectrogram the classifier would see.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		path := args[0]

		af, err := newAudioFile()
		if err != nil {
			return err
		}
		defer af.Close()

		info, err := af.Stat(path)
		if err != nil {
			return err
		}
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		loud, err := af.CheckLoudness(path, cfg.Loudness.ThresholdDB, cfg.Loudness.SampleRate)
		if err != nil {
			return fmt.Errorf("check loudness: %w", err)
		}

		out := inspection{
			Path:       path,
			Size:       cli.FormatBytes(fi.Size()),
			SampleRate: info.SampleRate,
			Channels:   info.Channels,
			Duration:   info.Duration,
			Loud:       loud,
		}
		if t, err := af.ExtractMelSpectrogram(path, cfg.Audio); err != nil {
			out.TensorErr = err.Error()
		} else {
			mean, std := t.Stats()
			out.Tensor = &tensorStats{Rows: t.Rows, Cols: t.Cols, Mean: mean, Std: std}
		}
		return outputResult(out)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
