package shm

import (
	"fmt"
	"strings"

	"github.com/samber/mo"
)

// The overlay canvas has a fixed size regardless of the video geometry.
const (
	CanvasWidth  = 2000
	CanvasHeight = 2000
)

// OverlaySize is the segment size the overlay filter allocates.
var OverlaySize = BGR32.SegmentSize(CanvasWidth, CanvasHeight)

// Rect is a dirty region of the overlay canvas.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", r.X, r.Y, r.W, r.H)
}

// UpdateCommand formats the engine command that applies an overlay change.
// Unset options are left out, so the engine keeps their current value.
func UpdateCommand(alpha mo.Option[int], visible mo.Option[bool], rects []Rect) string {
	var parts []string

	if a, ok := alpha.Get(); ok {
		parts = append(parts, fmt.Sprintf("alpha=%d", a))
	}

	if v, ok := visible.Get(); ok {
		flag := 0
		if v {
			flag = 1
		}
		parts = append(parts, fmt.Sprintf("visible=%d", flag))
	}

	for _, r := range rects {
		parts = append(parts, "invalidate="+r.String())
	}

	return "overlay " + strings.Join(parts, ",")
}
