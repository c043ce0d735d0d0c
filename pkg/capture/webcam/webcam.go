// Package webcam reads frames from a local camera through OpenCV.
package webcam

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// Camera is a capture.Device over gocv.VideoCapture.
type Camera struct {
	cfg capture.Config

	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// New creates a closed camera.
func New(opts ...capture.Option) *Camera {
	cfg := capture.DefaultConfig()
	cfg.Apply(opts...)
	return &Camera{cfg: cfg}
}

// Open acquires the device.
func (c *Camera) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap != nil {
		return nil
	}
	vc, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device not available", c.cfg.DeviceID)
	}
	if c.cfg.MaxWidth > 0 && c.cfg.MaxHeight > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.MaxWidth))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.MaxHeight))
	}

	c.cap = vc
	c.mat = gocv.NewMat()
	return nil
}

// Capture grabs one frame. An empty read (camera still warming up)
// returns capture.ErrNotReady.
func (c *Camera) Capture(ctx context.Context) (*crowd.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil, capture.ErrNotReady
	}
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, capture.ErrNotReady
	}

	// ToImage converts the BGR mat to RGBA.
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return crowd.FrameFromImage(c.cfg.Fit(img)), nil
}

// Close releases the device. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}
	c.mat.Close()
	err := c.cap.Close()
	c.cap = nil
	return err
}

// Size reports the device's current frame size.
func (c *Camera) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return image.Point{}
	}
	return image.Pt(
		int(c.cap.Get(gocv.VideoCaptureFrameWidth)),
		int(c.cap.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Verify Camera implements capture.Device at compile time.
var _ capture.Device = (*Camera)(nil)
