// Package detect counts people on-device with a YOLOv8 ONNX model so
// spatial guidance keeps working without a network connection.
package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sensory/pkg/vision"
)

// ErrModelNotFound is returned when the ONNX file does not exist.
var ErrModelNotFound = errors.New("detect: model file not found")

// personClass is the COCO class id for "person".
const personClass = 0

// Config holds detector configuration
type Config struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	Logger           *slog.Logger
}

// DefaultConfig returns defaults for YOLOv8n
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		Logger:           slog.Default(),
	}
}

// YOLO detects people with YOLOv8. It implements vision.Enricher.
type YOLO struct {
	net       gocv.Net
	config    Config
	inputSize image.Point
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New loads the model at cfg.ModelPath.
func New(cfg Config) (*YOLO, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("detect: failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLO{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    cfg.Logger.With("component", "vision.yolo"),
	}, nil
}

// Detect returns every person in the JPEG.
func (d *YOLO) Detect(jpeg []byte) ([]vision.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("detect: closed")
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, vision.ErrNoImage
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parse(output, float32(img.Cols()), float32(img.Rows()))
}

// parse reads the [1, 84, N] YOLOv8 output: 4 box values then 80 class
// scores per candidate, stored column-major.
func (d *YOLO) parse(output gocv.Mat, imgW, imgH float32) ([]vision.Detection, error) {
	rows := output.Cols()
	cols := output.Rows()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	var (
		boxes       []image.Rectangle
		confidences []float32
	)
	for i := 0; i < rows; i++ {
		best, bestClass := float32(0), 0
		for c := 4; c < cols; c++ {
			if s := data[c*rows+i]; s > best {
				best, bestClass = s, c-4
			}
		}
		if bestClass != personClass || best < d.config.ConfidenceThresh {
			continue
		}

		cx, cy := data[i], data[rows+i]
		w, h := data[2*rows+i], data[3*rows+i]
		sx := imgW / float32(d.config.InputWidth)
		sy := imgH / float32(d.config.InputHeight)
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		))
		confidences = append(confidences, best)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)
	dets := make([]vision.Detection, 0, len(indices))
	for _, idx := range indices {
		b := boxes[idx]
		dets = append(dets, vision.Detection{
			X:          float64(b.Min.X) / float64(imgW),
			Y:          float64(b.Min.Y) / float64(imgH),
			W:          float64(b.Dx()) / float64(imgW),
			H:          float64(b.Dy()) / float64(imgH),
			Confidence: float64(confidences[idx]),
		})
	}
	return dets, nil
}

// Analyze runs Detect and turns the result into a report.
func (d *YOLO) Analyze(ctx context.Context, jpeg []byte) (*vision.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dets, err := d.Detect(jpeg)
	if err != nil {
		return nil, vision.WrapError("yolo", err)
	}
	d.logger.Debug("detected people", "count", len(dets))
	return vision.ReportFromDetections(dets), nil
}

// Close releases the network.
func (d *YOLO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}

var _ vision.Enricher = (*YOLO)(nil)
