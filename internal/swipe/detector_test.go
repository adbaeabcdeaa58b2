package swipe

import "testing"

type recordingNav struct {
	calls []string
}

func (n *recordingNav) Next() bool {
	n.calls = append(n.calls, "next")
	return true
}

func (n *recordingNav) Prev() bool {
	n.calls = append(n.calls, "prev")
	return true
}

func drag(d *Detector, target string, points ...[2]float64) Intent {
	if !d.Start(points[0][0], points[0][1], target) {
		return None
	}
	for _, p := range points[1:] {
		d.Move(p[0], p[1])
	}
	return d.End()
}

// TestSwipeIntents covers direction, threshold and the resistance factor.
func TestSwipeIntents(t *testing.T) {
	cases := []struct {
		name   string
		target string
		points [][2]float64
		want   Intent
	}{
		{"left swipe", "div", [][2]float64{{200, 100}, {180, 100}, {80, 105}}, Next},
		{"right swipe", "div", [][2]float64{{50, 100}, {70, 100}, {170, 95}}, Prev},
		{"travel 100 is offset 50, not past threshold", "div", [][2]float64{{200, 100}, {185, 100}, {100, 100}}, None},
		{"vertical scroll locks out", "div", [][2]float64{{100, 100}, {102, 140}, {0, 140}}, None},
		{"small jitter never locks", "div", [][2]float64{{100, 100}, {105, 103}}, None},
		{"text input excluded", "INPUT", [][2]float64{{200, 100}, {180, 100}, {0, 100}}, None},
		{"textarea excluded", "textarea", [][2]float64{{200, 100}, {180, 100}, {0, 100}}, None},
		{"select excluded", "select", [][2]float64{{200, 100}, {180, 100}, {0, 100}}, None},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDetector()
			if got := drag(d, tc.target, tc.points...); got != tc.want {
				t.Errorf("intent = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestMoveClaimsOnlyHorizontal verifies scrolling is suppressed only after a horizontal lock.
func TestMoveClaimsOnlyHorizontal(t *testing.T) {
	d := NewDetector()
	d.Start(100, 100, "div")
	if _, claimed := d.Move(105, 100); claimed {
		t.Error("movement under the lock distance claimed")
	}
	offset, claimed := d.Move(80, 100)
	if !claimed || offset != -10 {
		t.Errorf("Move = %v, %v; want -10, true", offset, claimed)
	}
	// once locked horizontally, vertical drift is ignored
	if _, claimed := d.Move(70, 200); !claimed {
		t.Error("locked gesture released on vertical drift")
	}
	d.End()
	if d.Offset() != 0 {
		t.Errorf("offset after End = %v", d.Offset())
	}
}

// TestEnabledGate verifies a disabled detector ignores gestures.
func TestEnabledGate(t *testing.T) {
	d := NewDetector()
	enabled := false
	d.Enabled = func() bool { return enabled }
	if got := drag(d, "div", [2]float64{200, 0}, [2]float64{180, 0}, [2]float64{0, 0}); got != None {
		t.Errorf("disabled intent = %v", got)
	}
	enabled = true
	if got := drag(d, "div", [2]float64{200, 0}, [2]float64{180, 0}, [2]float64{0, 0}); got != Next {
		t.Errorf("enabled intent = %v", got)
	}
}

// TestDispatch verifies intents reach the navigator.
func TestDispatch(t *testing.T) {
	n := &recordingNav{}
	Dispatch(Next, n)
	Dispatch(Prev, n)
	if Dispatch(None, n) {
		t.Error("Dispatch(None) = true")
	}
	if len(n.calls) != 2 || n.calls[0] != "next" || n.calls[1] != "prev" {
		t.Errorf("calls = %v", n.calls)
	}
}
