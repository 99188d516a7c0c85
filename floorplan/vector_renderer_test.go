package floorplan

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/tdewolff/canvas"
)

func detectForRender(t *testing.T) *Result {
	t.Helper()
	segments := append(rectangle(0, 0, 400, 300), seg(200, 0, 200, 300))
	segments[0].LoadBearing = true
	res, err := Detect(segments, DefaultOptions())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	return res
}

func TestRoomRenderer_RenderToSVG(t *testing.T) {
	r := NewRoomRenderer(detectForRender(t))

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("Failed to render to SVG: %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("<svg")) {
		t.Errorf("Output does not contain <svg tag")
	}
	if !bytes.Contains(buf.Bytes(), []byte("path")) {
		t.Errorf("Output does not contain path elements")
	}
}

func TestRoomRenderer_RenderToPNG(t *testing.T) {
	r := NewRoomRenderer(detectForRender(t))
	r.Resolution = canvas.DPMM(2)

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf); err != nil {
		t.Fatalf("Failed to render to PNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	// 400x300 drawing plus 20 units of padding on each side, at 2 px per unit.
	b := img.Bounds()
	if abs(b.Dx()-880) > 1 || abs(b.Dy()-680) > 1 {
		t.Errorf("PNG size = %dx%d, want 880x680", b.Dx(), b.Dy())
	}
}

func TestRoomRenderer_NothingToRender(t *testing.T) {
	r := NewRoomRenderer(&Result{Transform: Identity()})

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("RenderToSVG() error = %v, want ErrNothingToRender", err)
	}
	if err := r.RenderToPNG(&buf); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("RenderToPNG() error = %v, want ErrNothingToRender", err)
	}
}

func TestRoomColor(t *testing.T) {
	seen := make(map[[3]uint8]bool)
	for i := 0; i < 12; i++ {
		c := RoomColor(i)
		if c.A != 110 {
			t.Errorf("RoomColor(%d).A = %d, want 110", i, c.A)
		}
		key := [3]uint8{c.R, c.G, c.B}
		if seen[key] {
			t.Errorf("RoomColor(%d) repeats an earlier color %v", i, key)
		}
		seen[key] = true
	}
	if RoomColor(3) != RoomColor(3) {
		t.Error("RoomColor is not stable")
	}
}

func TestNrgbaToRGBA(t *testing.T) {
	got := nrgbaToRGBA(RoomColor(0))
	if got.A != 110 || got.R > 110 || got.G > 110 || got.B > 110 {
		t.Errorf("nrgbaToRGBA() = %+v, want premultiplied alpha 110", got)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
