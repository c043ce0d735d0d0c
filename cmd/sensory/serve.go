package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowdmap"
	"github.com/teslashibe/go-sensory/pkg/hub"
	"github.com/teslashibe/go-sensory/pkg/overlay"
	"github.com/teslashibe/go-sensory/pkg/session"
	"github.com/teslashibe/go-sensory/pkg/web"
)

var (
	serveCamera  bool
	overlayW     int
	overlayH     int
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, crowd map and live overlay",
	Long: `Starts the fiber server. Browsers post frames to /api/crowd/frame or
send data URLs to /api/analyze-crowd. With --camera the server also runs a
capture session on the configured camera source and pushes every
committed analysis to /ws/crowd.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveCamera, "camera", false, "run a capture session on the configured camera")
	serveCmd.Flags().IntVar(&overlayW, "overlay-width", 640, "overlay width in pixels")
	serveCmd.Flags().IntVar(&overlayH, "overlay-height", 480, "overlay height in pixels")
	serveCmd.Flags().DurationVar(&serveTimeout, "startup-timeout", 15*time.Second, "timeout for connecting backends")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, serveTimeout)
	defer cancel()

	enricher, err := newEnricher(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	narrator, err := newNarrator(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	store, err := newPrefsStore(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	broadcast := hub.New("crowd", logger)
	renderer := overlay.NewRenderer(overlayW, overlayH)

	board := crowdmap.NewBoard(crowdmap.Locations(), crowdmap.WithBoardLogger(logger))
	board.Subscribe(func(s crowdmap.Snapshot) {
		broadcast.BroadcastJSON(struct {
			Type  string            `json:"type"`
			Board crowdmap.Snapshot `json:"board"`
		}{"board", s})
	})
	if err := board.Start(); err != nil {
		return err
	}
	defer board.Stop()

	aopts := analyzerOptions(cfg, enricher, logger)
	aopts = append(aopts, analyzer.WithSink(renderer), analyzer.WithSink(broadcast))

	var (
		an        *analyzer.Analyzer
		sessionID = uuid.NewString()
		sess      *session.Session
	)
	if serveCamera {
		device, err := newDevice(cfg)
		if err != nil {
			return err
		}
		sopts := []session.Option{
			session.WithID(sessionID),
			session.WithLogger(logger),
			session.WithAnalyzerOptions(aopts...),
			session.WithSchedulerOptions(schedulerOptions(cfg, logger)...),
		}
		if narrator != nil {
			sopts = append(sopts, session.WithNarrator(narrator))
		}
		sess = session.New(device, sopts...)
		an = sess.Analyzer()
	} else {
		an = analyzer.New(nil, aopts...)
	}

	if pub := newPublisher(cfg, sessionID, logger); pub != nil {
		an.AddSink(pub)
		defer pub.Close()
	}

	if sess != nil {
		if err := sess.Start(startCtx); err != nil {
			var rerr *session.ResourceError
			if errors.As(err, &rerr) {
				logger.Error("camera unavailable, serving uploads only", "error", err)
			} else {
				return err
			}
		}
		defer sess.Close()
	} else if narrator != nil {
		defer narrator.Close()
	}

	server := web.NewServer(cfg.Server.Port, web.Deps{
		Vision:    enricher,
		Analyzer:  an,
		Overlay:   renderer,
		Narrator:  narrator,
		Prefs:     store,
		Board:     board,
		Hub:       broadcast,
		Capture:   capture.DefaultConfig(),
		StaticDir: cfg.Server.StaticDir,
	}, logger)

	err = server.Run(ctx)
	an.Wait()
	return err
}
