package main

import (
	"encoding/json"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/overlay"
)

var (
	classifyOverlay string
	classifyEnrich  bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Analyze one image and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyOverlay, "overlay", "", "write the image with the overlay drawn on it")
	classifyCmd.Flags().BoolVar(&classifyEnrich, "enrich", false, "ask the vision model for spatial guidance")
}

// classifyResult is the printed JSON.
type classifyResult struct {
	File     string  `json:"file"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Status   string  `json:"status"`
	Advice   string  `json:"advice"`
	Analysis any     `json:"analysis"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	src := capture.NewFileSource(path)
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer src.Close()

	aopts := []analyzer.Option{analyzer.WithLogger(logger)}
	if classifyEnrich {
		enricher, err := newEnricher(ctx, cfg, logger)
		if err != nil {
			return err
		}
		aopts = analyzerOptions(cfg, enricher, logger)
	}

	res, err := analyzer.New(src, aopts...).Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	st := res.Analysis.Status()
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(classifyResult{
		File:     path,
		Mean:     res.Stats.Mean,
		Variance: res.Stats.Variance,
		Status:   string(st.Label),
		Advice:   st.Advice,
		Analysis: res.Analysis,
	}); err != nil {
		return err
	}

	if classifyOverlay == "" {
		return nil
	}
	frame, err := src.Capture(ctx)
	if err != nil {
		return err
	}
	if err := imaging.Save(overlay.Compose(frame.Image(), res.Analysis), classifyOverlay); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	logger.Info("overlay written", "path", classifyOverlay)
	return nil
}
