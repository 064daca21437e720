package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/crybaby/pkg/cli"
	"github.com/haivivi/crybaby/pkg/service"
)

var (
	runFailFast bool
	runLimit    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Record continuously and score every loud clip",
	Long: `Record clips back to back until interrupted (Ctrl+C or SIGTERM).

Clips quieter than loudness.threshold_db are deleted. Every other clip is
scored, the score is saved to the prediction store and, when an archive is
configured, the clip is copied there.

Examples:
  crybaby run
  crybaby run --fail-fast
  crybaby run --limit 10 -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, p, err := loadConfig()
		if err != nil {
			return err
		}
		if runFailFast {
			cfg.FailFast = true
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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

		repo, err := openRepository(cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		archive, err := openArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}

		rec, err := newRecorder(cfg)
		if err != nil {
			return err
		}
		defer rec.TearDown()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		styles := cli.NewStyles(cli.DefaultTheme)
		var handled atomic.Int64
		opts := []service.Option{
			service.WithLoudness(cfg.Loudness),
			service.WithObserver(func(ev service.Event) {
				name := filepath.Base(ev.Clip.Path)
				switch {
				case ev.Err != nil:
					fmt.Println(styles.Alert.Render("✗ "+name) + " " + styles.Help.Render(ev.Err.Error()))
				case ev.Loud:
					fmt.Println(styles.Prediction(name, ev.Score, cfg.Classifier.AlertThreshold))
				case verbose:
					fmt.Println(styles.Help.Render("· " + name + " quiet, discarded"))
				}
				if runLimit > 0 && handled.Add(1) >= int64(runLimit) {
					cancel()
				}
			}),
		}
		if cfg.FailFast {
			opts = append(opts, service.WithFailFast())
		}
		if archive != nil {
			opts = append(opts, service.WithArchive(archive))
		}
		svc := service.New(rec, af, cls, repo, opts...)

		started := time.Now()
		if err := svc.ContinuouslyEvaluate(ctx); err != nil {
			return err
		}
		fmt.Println(styles.Title.Render("crybaby") + styles.Help.Render("listening, press Ctrl+C to stop"))

		finished := make(chan error, 1)
		go func() { finished <- svc.Wait() }()

		var runErr error
		select {
		case <-ctx.Done():
			if err := svc.Stop(); err != nil {
				runErr = err
			}
			if err := <-finished; err != nil && runErr == nil {
				runErr = err
			}
		case runErr = <-finished:
			if err := svc.Stop(); err != nil && runErr == nil {
				runErr = err
			}
		}

		st := svc.Stats()
		fmt.Println(styles.Help.Render(fmt.Sprintf("received %d, discarded %d, classified %d, failed %d in %s",
			st.Received, st.Discarded, st.Classified, st.Failed, cli.FormatDuration(time.Since(started)))))
		return runErr
	},
}

func init() {
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop on the first clip error")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "stop after this many clips (0 = no limit)")
	rootCmd.AddCommand(runCmd)
}
