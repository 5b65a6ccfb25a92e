package camera

import (
	"context"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/frame"
)

// Default live video size.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// PatternSource is a mock camera producing synthetic frames: a solid
// color that changes on every shot, with a dark bar on the left edge so
// mirroring is visible. Used for development on PC and in tests.
type PatternSource struct {
	width  int
	height int

	mu    sync.Mutex
	ready bool
	shots int
}

// NewPatternSource creates a ready mock camera of the given size.
// Non-positive sizes fall back to 1280x720.
func NewPatternSource(width, height int) *PatternSource {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &PatternSource{width: width, height: height, ready: true}
}

// SetReady simulates granting or revoking camera access.
func (p *PatternSource) SetReady(ready bool) {
	p.mu.Lock()
	p.ready = ready
	p.mu.Unlock()
}

// Ready reports whether the mock camera is available.
func (p *PatternSource) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// StillFrame returns the next synthetic frame.
func (p *PatternSource) StillFrame(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return nil, ErrNoFrame
	}
	shot := p.shots
	p.shots++
	p.mu.Unlock()

	c := patternColors[shot%len(patternColors)]
	bar := p.width / 8
	pix := make([]uint8, p.width*p.height*4)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			i := (y*p.width + x) * 4
			if x < bar {
				pix[i], pix[i+1], pix[i+2] = 32, 32, 32
			} else {
				pix[i], pix[i+1], pix[i+2] = c[0], c[1], c[2]
			}
			pix[i+3] = 255
		}
	}
	debug.Trace("Camera: pattern frame %d", shot)
	return frame.New(p.width, p.height, pix)
}

var patternColors = [][3]uint8{
	{230, 57, 70},
	{42, 157, 143},
	{69, 123, 157},
	{244, 162, 97},
}
