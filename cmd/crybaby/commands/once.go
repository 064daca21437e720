package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/crybaby/pkg/cli"
	"github.com/haivivi/crybaby/pkg/service"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Record one clip and print its score",
	Long: `Record a single clip from the default input device and print the
classifier score. Nothing is saved to the prediction store.`,
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

		rec, err := newRecorder(cfg)
		if err != nil {
			return err
		}
		defer rec.TearDown()

		svc := service.New(rec, af, cls, nil, service.WithLoudness(cfg.Loudness))
		score, err := svc.EvaluateFromMicrophone(ctx)
		if err != nil {
			return err
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		fmt.Println(styles.Prediction("microphone", score, cfg.Classifier.AlertThreshold))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(onceCmd)
}
