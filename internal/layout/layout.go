// Package layout computes target window rectangles from a window order,
// a container rectangle, and layout parameters. Functions here are pure:
// no side effects, no window-server access, deterministic output.
package layout

import (
	"fmt"
	"math"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
)

// Params selects a layout variant and its tuning values.
type Params struct {
	Mode           config.LayoutMode
	Gaps           geometry.Gaps
	MasterRatio    float64 // Master share of the primary axis, 0.0-1.0.
	MasterPosition config.MasterPosition
	DwindleRatio   float64 // First-split share for dwindle, 0.0-1.0.
	GridMaxWindows int
}

// FromConfig builds layout parameters for a workspace from the loaded config.
func FromConfig(cfg *config.Config, workspace string) Params {
	return Params{
		Mode:           cfg.LayoutFor(workspace),
		Gaps:           cfg.GapsFor(workspace),
		MasterRatio:    cfg.Master.Ratio(),
		MasterPosition: cfg.Master.Position,
		DwindleRatio:   cfg.Dwindle.Ratio(),
		GridMaxWindows: cfg.Grid.MaxWindows,
	}
}

// Compute maps each window id to its target rectangle. Window order
// matters: the first id is the master in master-stack and the outermost
// region in split and dwindle. Floating returns an empty mapping, as do
// zero windows. Windows a variant cannot place (grid overflow) are
// simply absent from the result.
func Compute(ids []uint32, container geometry.Rect, p Params) (map[uint32]geometry.Rect, error) {
	if len(ids) == 0 {
		return map[uint32]geometry.Rect{}, nil
	}

	usable := p.Gaps.ApplyOuter(container)

	switch p.Mode {
	case config.LayoutFloating:
		return map[uint32]geometry.Rect{}, nil
	case config.LayoutMonocle:
		return monocle(ids, usable), nil
	case config.LayoutMasterStack:
		return masterStack(ids, usable, p)
	case config.LayoutSplit:
		return bisect(ids, usable, container, p.Gaps.Inner, 0.5, false)
	case config.LayoutDwindle:
		return bisect(ids, usable, container, p.Gaps.Inner, p.DwindleRatio, true)
	case config.LayoutGrid:
		return grid(ids, usable, p)
	default:
		return nil, fmt.Errorf("unsupported layout mode: %q", p.Mode)
	}
}

// monocle gives every window the full usable area. Stacking order is
// left to the caller.
func monocle(ids []uint32, usable geometry.Rect) map[uint32]geometry.Rect {
	out := make(map[uint32]geometry.Rect, len(ids))
	for _, id := range ids {
		out[id] = usable
	}
	return out
}

func masterStack(ids []uint32, usable geometry.Rect, p Params) (map[uint32]geometry.Rect, error) {
	out := make(map[uint32]geometry.Rect, len(ids))
	if len(ids) == 1 {
		out[ids[0]] = usable
		return out, nil
	}

	gap := p.Gaps.Inner
	horizontal := p.MasterPosition == config.MasterLeft || p.MasterPosition == config.MasterRight

	primary := usable.Width
	if !horizontal {
		primary = usable.Height
	}
	masterSize := int(float64(primary-gap) * p.MasterRatio)
	stackSize := primary - gap - masterSize
	if masterSize <= 0 || stackSize <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for master-stack layout: usable=%dx%d master=%d stack=%d gap=%d",
			usable.Width, usable.Height, masterSize, stackSize, gap,
		)
	}

	var master, stack geometry.Rect
	switch p.MasterPosition {
	case config.MasterLeft:
		master = geometry.Rect{X: usable.X, Y: usable.Y, Width: masterSize, Height: usable.Height}
		stack = geometry.Rect{X: usable.X + masterSize + gap, Y: usable.Y, Width: stackSize, Height: usable.Height}
	case config.MasterRight:
		stack = geometry.Rect{X: usable.X, Y: usable.Y, Width: stackSize, Height: usable.Height}
		master = geometry.Rect{X: usable.X + stackSize + gap, Y: usable.Y, Width: masterSize, Height: usable.Height}
	case config.MasterTop:
		master = geometry.Rect{X: usable.X, Y: usable.Y, Width: usable.Width, Height: masterSize}
		stack = geometry.Rect{X: usable.X, Y: usable.Y + masterSize + gap, Width: usable.Width, Height: stackSize}
	case config.MasterBottom:
		stack = geometry.Rect{X: usable.X, Y: usable.Y, Width: usable.Width, Height: stackSize}
		master = geometry.Rect{X: usable.X, Y: usable.Y + stackSize + gap, Width: usable.Width, Height: masterSize}
	default:
		return nil, fmt.Errorf("unsupported master position: %q", p.MasterPosition)
	}
	out[ids[0]] = master

	// Stack windows subdivide the secondary axis evenly; remainder pixels
	// go to the earlier windows so the stack covers its region exactly.
	rest := ids[1:]
	if horizontal {
		heights := distribute(stack.Height-(len(rest)-1)*gap, len(rest))
		if heights == nil {
			return nil, fmt.Errorf("insufficient space for %d stack windows in %dx%d", len(rest), stack.Width, stack.Height)
		}
		y := stack.Y
		for i, id := range rest {
			out[id] = geometry.Rect{X: stack.X, Y: y, Width: stack.Width, Height: heights[i]}
			y += heights[i] + gap
		}
	} else {
		widths := distribute(stack.Width-(len(rest)-1)*gap, len(rest))
		if widths == nil {
			return nil, fmt.Errorf("insufficient space for %d stack windows in %dx%d", len(rest), stack.Width, stack.Height)
		}
		x := stack.X
		for i, id := range rest {
			out[id] = geometry.Rect{X: x, Y: stack.Y, Width: widths[i], Height: stack.Height}
			x += widths[i] + gap
		}
	}

	return out, nil
}

func grid(ids []uint32, usable geometry.Rect, p Params) (map[uint32]geometry.Rect, error) {
	// Windows past the cap keep their last position rather than degrading
	// the grid for everyone else.
	placed := ids
	if p.GridMaxWindows > 0 && len(placed) > p.GridMaxWindows {
		placed = placed[:p.GridMaxWindows]
	}

	n := len(placed)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))

	gap := p.Gaps.Inner
	heights := distribute(usable.Height-(rows-1)*gap, rows)
	if heights == nil {
		return nil, fmt.Errorf(
			"insufficient space for grid layout: usable=%dx%d rows=%d cols=%d gap=%d",
			usable.Width, usable.Height, rows, cols, gap,
		)
	}

	out := make(map[uint32]geometry.Rect, n)
	y := usable.Y
	for row := 0; row < rows; row++ {
		start := row * cols
		end := start + cols
		if end > n {
			end = n
		}
		// A short last row expands its windows to fill the full width.
		rowIDs := placed[start:end]
		widths := distribute(usable.Width-(len(rowIDs)-1)*gap, len(rowIDs))
		if widths == nil {
			return nil, fmt.Errorf(
				"insufficient space for grid layout: usable=%dx%d rows=%d cols=%d gap=%d",
				usable.Width, usable.Height, rows, cols, gap,
			)
		}
		x := usable.X
		for i, id := range rowIDs {
			out[id] = geometry.Rect{X: x, Y: y, Width: widths[i], Height: heights[row]}
			x += widths[i] + gap
		}
		y += heights[row] + gap
	}

	return out, nil
}

// distribute splits total into n parts that sum exactly to total, giving
// the remainder pixels to the earlier parts. Returns nil when any part
// would be smaller than one pixel.
func distribute(total, n int) []int {
	if n <= 0 || total < n {
		return nil
	}
	base := total / n
	rem := total % n
	parts := make([]int, n)
	for i := range parts {
		parts[i] = base
		if i < rem {
			parts[i]++
		}
	}
	return parts
}
