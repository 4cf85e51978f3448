// Package viewport models the pan/zoom state of a conversation map view.
//
// The viewport maps layout-space coordinates to screen space via
// screen = layout·scale + translate. Wheel zoom is anchored at the cursor:
// the layout point under the cursor stays under it after the scale change.
package viewport

import "sync"

// Zoom limits and per-notch step.
const (
	MinScale  = 0.5
	MaxScale  = 3.0
	ZoomStep  = 0.1
	initScale = 1.0
)

// State is a snapshot of the view transform.
type State struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Dragging   bool    `json:"dragging"`
}

// Viewport tracks the current transform and drag gesture. Methods are safe
// for concurrent use; events from a single pointer arrive in order.
type Viewport struct {
	mu sync.Mutex

	scale      float64
	translateX float64
	translateY float64

	dragging   bool
	lastDragX  float64
	lastDragY  float64
}

// New returns a viewport at identity transform.
func New() *Viewport {
	return &Viewport{scale: initScale}
}

// State returns the current transform snapshot.
func (v *Viewport) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Scale:      v.scale,
		TranslateX: v.translateX,
		TranslateY: v.translateY,
		Dragging:   v.dragging,
	}
}

// BeginDrag enters the dragging state, recording the pointer position.
// A drag already in progress is restarted from the new position.
func (v *Viewport) BeginDrag(x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dragging = true
	v.lastDragX, v.lastDragY = x, y
}

// Drag pans by the pointer movement since the previous drag event.
// Ignored unless a drag is in progress.
func (v *Viewport) Drag(x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.dragging {
		return
	}
	v.translateX += x - v.lastDragX
	v.translateY += y - v.lastDragY
	v.lastDragX, v.lastDragY = x, y
}

// EndDrag leaves the dragging state. The transform keeps its panned value.
func (v *Viewport) EndDrag() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dragging = false
}

// Wheel applies notches of zoom anchored at screen point (x, y). Positive
// notches zoom in by ZoomStep each, negative zoom out. The resulting scale is
// clamped to [MinScale, MaxScale]; the translate is adjusted so the layout
// point under the anchor does not move on screen.
func (v *Viewport) Wheel(notches int, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := clamp(v.scale + float64(notches)*ZoomStep)
	if next == v.scale {
		return
	}

	// Keep the layout point under the anchor fixed:
	// (x - tx) / scale == (x - tx') / next.
	ratio := next / v.scale
	v.translateX = x - (x-v.translateX)*ratio
	v.translateY = y - (y-v.translateY)*ratio
	v.scale = next
}

// Reset restores the identity transform and clears any drag in progress.
func (v *Viewport) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scale = initScale
	v.translateX, v.translateY = 0, 0
	v.dragging = false
}

// ToScreen maps a layout-space point to screen space under the current
// transform.
func (v *Viewport) ToScreen(x, y float64) (sx, sy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return x*v.scale + v.translateX, y*v.scale + v.translateY
}

// ToLayout maps a screen-space point back to layout space.
func (v *Viewport) ToLayout(sx, sy float64) (x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return (sx - v.translateX) / v.scale, (sy - v.translateY) / v.scale
}

func clamp(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
