package crowd

import "errors"

// ErrFrameNotReady is returned when a frame has no readable pixels yet,
// for example before the camera delivers its first image. Callers skip the
// cycle and try again on the next tick.
var ErrFrameNotReady = errors.New("crowd: frame not ready")
