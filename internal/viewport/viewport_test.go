package viewport

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWheelZoomSteps(t *testing.T) {
	v := New()
	v.Wheel(1, 0, 0)
	if s := v.State().Scale; !almostEqual(s, 1.1) {
		t.Errorf("scale after one notch in = %v, want 1.1", s)
	}
	v.Wheel(-2, 0, 0)
	if s := v.State().Scale; !almostEqual(s, 0.9) {
		t.Errorf("scale after two notches out = %v, want 0.9", s)
	}
}

func TestWheelClampsScale(t *testing.T) {
	v := New()
	v.Wheel(100, 0, 0)
	if s := v.State().Scale; s != MaxScale {
		t.Errorf("scale = %v, want clamped to %v", s, MaxScale)
	}
	v.Wheel(-100, 0, 0)
	if s := v.State().Scale; s != MinScale {
		t.Errorf("scale = %v, want clamped to %v", s, MinScale)
	}
}

func TestWheelAtClampBoundaryKeepsTranslate(t *testing.T) {
	v := New()
	v.Wheel(100, 0, 0)
	before := v.State()
	v.Wheel(5, 321, 123)
	after := v.State()
	if after.TranslateX != before.TranslateX || after.TranslateY != before.TranslateY {
		t.Errorf("translate changed with no scale change: %+v -> %+v", before, after)
	}
}

func TestWheelPreservesAnchorPoint(t *testing.T) {
	v := New()
	v.BeginDrag(0, 0)
	v.Drag(40, -25)
	v.EndDrag()

	const anchorX, anchorY = 420.0, 260.0
	lx, ly := v.ToLayout(anchorX, anchorY)

	for _, notches := range []int{1, 1, -3, 7, -2} {
		v.Wheel(notches, anchorX, anchorY)
		sx, sy := v.ToScreen(lx, ly)
		if !almostEqual(sx, anchorX) || !almostEqual(sy, anchorY) {
			t.Fatalf("after %d notches: anchor layout point maps to (%v, %v), want (%v, %v)",
				notches, sx, sy, anchorX, anchorY)
		}
	}
}

func TestDragPans(t *testing.T) {
	v := New()
	v.BeginDrag(100, 100)
	v.Drag(130, 90)
	v.Drag(150, 95)
	v.EndDrag()

	st := v.State()
	if st.TranslateX != 50 || st.TranslateY != -5 {
		t.Errorf("translate = (%v, %v), want (50, -5)", st.TranslateX, st.TranslateY)
	}
	if st.Dragging {
		t.Error("still dragging after EndDrag")
	}
}

func TestDragIgnoredWhenIdle(t *testing.T) {
	v := New()
	v.Drag(500, 500)
	st := v.State()
	if st.TranslateX != 0 || st.TranslateY != 0 {
		t.Errorf("translate = (%v, %v) without a drag in progress", st.TranslateX, st.TranslateY)
	}
}

func TestBeginDragRestartsGesture(t *testing.T) {
	v := New()
	v.BeginDrag(0, 0)
	v.Drag(10, 10)
	v.BeginDrag(100, 100)
	v.Drag(105, 100)
	st := v.State()
	if st.TranslateX != 15 || st.TranslateY != 10 {
		t.Errorf("translate = (%v, %v), want (15, 10)", st.TranslateX, st.TranslateY)
	}
}

func TestReset(t *testing.T) {
	v := New()
	v.Wheel(5, 200, 200)
	v.BeginDrag(0, 0)
	v.Drag(33, 44)
	v.Reset()

	st := v.State()
	if st.Scale != 1 || st.TranslateX != 0 || st.TranslateY != 0 || st.Dragging {
		t.Errorf("state after reset = %+v, want identity", st)
	}
}

func TestRoundTripScreenLayout(t *testing.T) {
	v := New()
	v.Wheel(3, 150, 80)
	v.BeginDrag(0, 0)
	v.Drag(-60, 12)
	v.EndDrag()

	for _, p := range [][2]float64{{0, 0}, {80, 60}, {380, 264}} {
		sx, sy := v.ToScreen(p[0], p[1])
		x, y := v.ToLayout(sx, sy)
		if !almostEqual(x, p[0]) || !almostEqual(y, p[1]) {
			t.Errorf("round trip of (%v, %v) = (%v, %v)", p[0], p[1], x, y)
		}
	}
}
