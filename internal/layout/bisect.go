package layout

import (
	"fmt"

	"github.com/1broseidon/tilewm/internal/geometry"
)

type splitDirection int

const (
	splitHorizontal splitDirection = iota // Side by side.
	splitVertical                         // Stacked.
)

func (d splitDirection) toggle() splitDirection {
	if d == splitHorizontal {
		return splitVertical
	}
	return splitHorizontal
}

// bisect recursively halves the usable area in alternating directions,
// one window per leaf. Split mode uses an even ratio at every level;
// dwindle gives the first split the configured ratio and balances four
// windows into a two-by-two grid instead of a spiral.
func bisect(ids []uint32, usable, container geometry.Rect, gap int, firstRatio float64, dwindle bool) (map[uint32]geometry.Rect, error) {
	// Portrait screens stack first, landscape screens split side by side.
	direction := splitHorizontal
	if container.Height > container.Width {
		direction = splitVertical
	}

	if dwindle && len(ids) == 4 {
		return grid2x2(ids, usable, gap)
	}

	out := make(map[uint32]geometry.Rect, len(ids))
	if err := bisectInto(out, ids, usable, direction, gap, firstRatio, dwindle); err != nil {
		return nil, err
	}
	return out, nil
}

func bisectInto(out map[uint32]geometry.Rect, ids []uint32, frame geometry.Rect, direction splitDirection, gap int, ratio float64, dwindle bool) error {
	switch len(ids) {
	case 0:
		return nil
	case 1:
		out[ids[0]] = frame
		return nil
	}

	first, rest, err := splitFrame(frame, direction, gap, ratio)
	if err != nil {
		return err
	}
	out[ids[0]] = first

	// Only the first split honors the configured dwindle ratio; deeper
	// splits are even, matching the spiral the ratio list defaults to.
	nextRatio := ratio
	if dwindle {
		nextRatio = 0.5
	}
	return bisectInto(out, ids[1:], rest, direction.toggle(), gap, nextRatio, dwindle)
}

// splitFrame divides a frame into a first part of the given ratio and
// the remainder, separated by the inner gap.
func splitFrame(frame geometry.Rect, direction splitDirection, gap int, ratio float64) (first, rest geometry.Rect, err error) {
	if ratio < 0.1 {
		ratio = 0.1
	}
	if ratio > 0.9 {
		ratio = 0.9
	}

	switch direction {
	case splitHorizontal:
		total := frame.Width - gap
		firstWidth := int(float64(total) * ratio)
		restWidth := total - firstWidth
		if firstWidth <= 0 || restWidth <= 0 {
			return first, rest, fmt.Errorf("insufficient width for split: frame=%dx%d gap=%d", frame.Width, frame.Height, gap)
		}
		first = geometry.Rect{X: frame.X, Y: frame.Y, Width: firstWidth, Height: frame.Height}
		rest = geometry.Rect{X: frame.X + firstWidth + gap, Y: frame.Y, Width: restWidth, Height: frame.Height}
	default:
		total := frame.Height - gap
		firstHeight := int(float64(total) * ratio)
		restHeight := total - firstHeight
		if firstHeight <= 0 || restHeight <= 0 {
			return first, rest, fmt.Errorf("insufficient height for split: frame=%dx%d gap=%d", frame.Width, frame.Height, gap)
		}
		first = geometry.Rect{X: frame.X, Y: frame.Y, Width: frame.Width, Height: firstHeight}
		rest = geometry.Rect{X: frame.X, Y: frame.Y + firstHeight + gap, Width: frame.Width, Height: restHeight}
	}
	return first, rest, nil
}

// grid2x2 places exactly four windows in quadrant order: top-left,
// top-right, bottom-left, bottom-right.
func grid2x2(ids []uint32, frame geometry.Rect, gap int) (map[uint32]geometry.Rect, error) {
	halfGap := gap / 2
	leftWidth := frame.Width/2 - halfGap
	rightWidth := frame.Width - leftWidth - gap
	topHeight := frame.Height/2 - halfGap
	bottomHeight := frame.Height - topHeight - gap
	if leftWidth <= 0 || rightWidth <= 0 || topHeight <= 0 || bottomHeight <= 0 {
		return nil, fmt.Errorf("insufficient space for 2x2 grid: frame=%dx%d gap=%d", frame.Width, frame.Height, gap)
	}

	rightX := frame.X + leftWidth + gap
	bottomY := frame.Y + topHeight + gap
	return map[uint32]geometry.Rect{
		ids[0]: {X: frame.X, Y: frame.Y, Width: leftWidth, Height: topHeight},
		ids[1]: {X: rightX, Y: frame.Y, Width: rightWidth, Height: topHeight},
		ids[2]: {X: frame.X, Y: bottomY, Width: leftWidth, Height: bottomHeight},
		ids[3]: {X: rightX, Y: bottomY, Width: rightWidth, Height: bottomHeight},
	}, nil
}
