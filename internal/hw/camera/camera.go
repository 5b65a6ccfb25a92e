package camera

import (
	"context"
	"errors"

	"github.com/cjeanneret/BoothGo/internal/logic/frame"
)

// ErrNoFrame is returned when a source produced no image for a request.
var ErrNoFrame = errors.New("camera: no frame returned")

// FrameSource is the live video source the booth pulls stills from.
// It represents an abstract camera, regardless of how frames are
// obtained (external capture command, image directory, test pattern).
type FrameSource interface {
	// Ready reports whether the source can currently deliver frames
	// (device present, permission granted, files available).
	Ready() bool

	// StillFrame grabs one still image from the live stream.
	StillFrame(ctx context.Context) (*frame.Frame, error)
}
