package layout

import (
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
)

// PresetFrame resolves a named floating preset against a container.
// Half dimensions account for the inner gap so that two half presets
// tile side by side without overlapping, and a half offset lands after
// the first half plus the gap. The result is always clamped inside the
// usable area.
func PresetFrame(preset config.FloatingPreset, container geometry.Rect, gaps geometry.Gaps) geometry.Rect {
	usable := gaps.ApplyOuter(container)
	gap := gaps.Inner

	width := resolveDim(preset.Width.Dimension, usable.Width, gap)
	height := resolveDim(preset.Height.Dimension, usable.Height, gap)
	if width > usable.Width {
		width = usable.Width
	}
	if height > usable.Height {
		height = usable.Height
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	var x, y int
	if preset.Center {
		x = usable.X + (usable.Width-width)/2
		y = usable.Y + (usable.Height-height)/2
	} else {
		x = usable.X + resolveOffset(preset.X, usable.Width, gap)
		y = usable.Y + resolveOffset(preset.Y, usable.Height, gap)
	}

	if x+width > usable.X+usable.Width {
		x = usable.X + usable.Width - width
	}
	if y+height > usable.Y+usable.Height {
		y = usable.Y + usable.Height - height
	}
	if x < usable.X {
		x = usable.X
	}
	if y < usable.Y {
		y = usable.Y
	}

	return geometry.Rect{X: x, Y: y, Width: width, Height: height}
}

func resolveDim(d geometry.Dimension, container, gap int) int {
	if d.IsHalf() {
		return (container - gap) / 2
	}
	return d.Resolve(container)
}

func resolveOffset(d *config.Dimension, container, gap int) int {
	if d == nil {
		return 0
	}
	if d.IsHalf() {
		// Land just past the first half and the gap between halves.
		return (container-gap)/2 + gap
	}
	return d.Resolve(container)
}
