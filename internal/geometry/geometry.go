// Package geometry provides the value types shared by the layout engine,
// the window-server layer, and the workspace state model. Everything here
// is pure data; nothing talks to the display server.
package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a position in global screen coordinates.
type Point struct {
	X int
	Y int
}

// Rect describes a window or screen region in global screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersect returns the overlapping region of two rectangles. The second
// return value is false when they do not overlap.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}, false
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}

// Empty reports whether the rectangle has no usable area.
func (r Rect) Empty() bool {
	return r.Width < 1 || r.Height < 1
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d at %d,%d", r.Width, r.Height, r.X, r.Y)
}

// DimensionKind distinguishes absolute from container-relative sizes.
type DimensionKind int

const (
	// Pixels is an absolute size.
	Pixels DimensionKind = iota
	// Percent is a fraction of the container axis, 0-100.
	Percent
)

// Dimension is a size expressed either as absolute pixels or as a
// percentage of a container axis ("640" vs "50%").
type Dimension struct {
	Kind  DimensionKind
	Value float64
}

// Px returns an absolute pixel dimension.
func Px(v int) Dimension {
	return Dimension{Kind: Pixels, Value: float64(v)}
}

// Pct returns a percentage dimension clamped to 0-100.
func Pct(v float64) Dimension {
	return Dimension{Kind: Percent, Value: clampPct(v)}
}

// ParseDimension parses "640", "640px", or "50%".
func ParseDimension(s string) (Dimension, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Dimension{}, fmt.Errorf("empty dimension")
	}

	if strings.HasSuffix(trimmed, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(trimmed, "%"), 64)
		if err != nil {
			return Dimension{}, fmt.Errorf("invalid percentage %q: %w", s, err)
		}
		return Pct(v), nil
	}

	trimmed = strings.TrimSuffix(trimmed, "px")
	v, err := strconv.Atoi(strings.TrimSpace(trimmed))
	if err != nil {
		return Dimension{}, fmt.Errorf("invalid dimension %q: %w", s, err)
	}
	return Px(v), nil
}

// Resolve converts the dimension to pixels against a container axis length.
// Percentages round to the nearest pixel.
func (d Dimension) Resolve(container int) int {
	switch d.Kind {
	case Percent:
		return int(float64(container)*clampPct(d.Value)/100.0 + 0.5)
	default:
		return int(d.Value)
	}
}

// IsHalf reports whether the dimension is exactly 50%. Half-sized presets
// get inner-gap treatment so two halves abut with a single gap between.
func (d Dimension) IsHalf() bool {
	return d.Kind == Percent && d.Value > 49.999 && d.Value < 50.001
}

func (d Dimension) String() string {
	if d.Kind == Percent {
		return strconv.FormatFloat(d.Value, 'f', -1, 64) + "%"
	}
	return strconv.Itoa(int(d.Value))
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Gaps holds the configured spacing between windows (inner) and between
// windows and the screen edge (outer).
type Gaps struct {
	Inner       int
	OuterTop    int
	OuterRight  int
	OuterBottom int
	OuterLeft   int
}

// Uniform returns gaps with the same outer value on all four edges.
func Uniform(outer, inner int) Gaps {
	return Gaps{
		Inner:       inner,
		OuterTop:    outer,
		OuterRight:  outer,
		OuterBottom: outer,
		OuterLeft:   outer,
	}
}

// ApplyOuter shrinks a container rect by the outer gaps. The result is
// clamped to at least 1x1 so degenerate gap settings never produce a
// negative area.
func (g Gaps) ApplyOuter(container Rect) Rect {
	adjusted := Rect{
		X:      container.X + g.OuterLeft,
		Y:      container.Y + g.OuterTop,
		Width:  container.Width - g.OuterLeft - g.OuterRight,
		Height: container.Height - g.OuterTop - g.OuterBottom,
	}
	if adjusted.Width < 1 {
		adjusted.Width = 1
	}
	if adjusted.Height < 1 {
		adjusted.Height = 1
	}
	return adjusted
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
