package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/crowd"
	"github.com/teslashibe/go-sensory/pkg/session"
	"github.com/teslashibe/go-sensory/pkg/tts"
)

var (
	watchDuration time.Duration
	watchAnnounce bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a capture session and print each analysis",
	Long: `Opens the configured camera source and prints one line per committed
analysis until interrupted (or until --duration elapses).`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	watchCmd.Flags().BoolVar(&watchAnnounce, "announce", false, "synthesize the status advice when the badge changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	if watchDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, watchDuration)
		defer cancel()
	}

	enricher, err := newEnricher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	device, err := newDevice(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := analyzer.SinkFunc(func(_ context.Context, a *crowd.Analysis) {
		st := a.Status()
		fmt.Fprintf(out, "%s  %-8s people=%-3d density=%-9s %ddB  %s\n",
			time.Now().Format("15:04:05"), st.Label, a.PeopleCount, a.CrowdDensity,
			a.EstimatedDecibelLevel, a.Recommendation)
		if a.HasGuidance() {
			fmt.Fprintf(out, "          guidance: %s\n", a.SpatialGuidance)
		}
	})

	aopts := append(analyzerOptions(cfg, enricher, logger), analyzer.WithSink(printer))
	sopts := []session.Option{
		session.WithLogger(logger),
		session.WithAnalyzerOptions(aopts...),
		session.WithSchedulerOptions(schedulerOptions(cfg, logger)...),
	}

	if watchAnnounce {
		narrator, err := newNarrator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if narrator != nil {
			sopts = append(sopts,
				session.WithNarrator(narrator),
				session.WithAnnouncements(func(st crowd.Status, clip *tts.Audio) {
					fmt.Fprintf(out, "          announced %s (%d bytes %s)\n", st, len(clip.Data), clip.MIME())
				}),
			)
		}
	}

	sess := session.New(device, sopts...)
	if pub := newPublisher(cfg, sess.ID(), logger); pub != nil {
		sess.Analyzer().AddSink(pub)
		defer pub.Close()
	}

	if err := sess.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "watching (session %s), Ctrl-C to stop\n", sess.ID())

	<-ctx.Done()
	return sess.Close()
}
