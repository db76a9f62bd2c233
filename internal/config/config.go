package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/tilewm/internal/geometry"
)

// LayoutMode defines how a workspace arranges its windows.
type LayoutMode string

const (
	LayoutMonocle     LayoutMode = "monocle"      // Every window gets the full container.
	LayoutMasterStack LayoutMode = "master-stack" // Master pane plus evenly split stack.
	LayoutSplit       LayoutMode = "split"        // Equal recursive bisection.
	LayoutDwindle     LayoutMode = "dwindle"      // Alternating splits shrinking toward a corner.
	LayoutGrid        LayoutMode = "grid"         // Near-square grid, row-major fill.
	LayoutFloating    LayoutMode = "floating"     // Windows keep their positions.
)

// LayoutModes lists every valid layout mode.
func LayoutModes() []LayoutMode {
	return []LayoutMode{
		LayoutMonocle,
		LayoutMasterStack,
		LayoutSplit,
		LayoutDwindle,
		LayoutGrid,
		LayoutFloating,
	}
}

// ValidMode reports whether m names a known layout mode.
func ValidMode(m LayoutMode) bool {
	for _, mode := range LayoutModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// MasterPosition places the master pane on one screen edge.
type MasterPosition string

const (
	MasterLeft   MasterPosition = "left"
	MasterRight  MasterPosition = "right"
	MasterTop    MasterPosition = "top"
	MasterBottom MasterPosition = "bottom"
)

// EdgeGaps holds per-edge outer gap sizes in pixels.
type EdgeGaps struct {
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
}

// GapsConfig configures spacing between windows and screen edges.
type GapsConfig struct {
	Inner int      `yaml:"inner"`
	Outer EdgeGaps `yaml:"outer"`
}

// Resolve converts the configured gaps into the geometry form used by
// the layout engine.
func (g GapsConfig) Resolve() geometry.Gaps {
	return geometry.Gaps{
		Inner:       g.Inner,
		OuterTop:    g.Outer.Top,
		OuterRight:  g.Outer.Right,
		OuterBottom: g.Outer.Bottom,
		OuterLeft:   g.Outer.Left,
	}
}

// MasterConfig defines the master-stack layout parameters.
type MasterConfig struct {
	RatioPercent int            `yaml:"ratio"`    // Master share of the primary axis, 10-90.
	Position     MasterPosition `yaml:"position"` // Which edge the master pane occupies.
}

// Ratio returns the master ratio as a 0.0-1.0 fraction.
func (m MasterConfig) Ratio() float64 {
	return float64(m.RatioPercent) / 100.0
}

// DwindleConfig defines the dwindle layout parameters.
type DwindleConfig struct {
	RatioPercent int `yaml:"ratio"` // First-split share, clamped to 10-90 at compute time.
}

// Ratio returns the dwindle split ratio as a 0.0-1.0 fraction.
func (d DwindleConfig) Ratio() float64 {
	return float64(d.RatioPercent) / 100.0
}

// GridConfig defines the grid layout parameters.
type GridConfig struct {
	// MaxWindows caps how many windows the grid will place. Windows beyond
	// the cap are left at their last position.
	MaxWindows int `yaml:"max_windows"`
}

// Dimension wraps geometry.Dimension with YAML decoding from either an
// integer pixel count or a string like "50%" or "640px".
type Dimension struct {
	geometry.Dimension
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Dimension) UnmarshalYAML(node *yaml.Node) error {
	var asInt int
	if err := node.Decode(&asInt); err == nil {
		d.Dimension = geometry.Px(asInt)
		return nil
	}

	var asString string
	if err := node.Decode(&asString); err != nil {
		return fmt.Errorf("dimension must be a number or string: %w", err)
	}

	parsed, err := geometry.ParseDimension(asString)
	if err != nil {
		return err
	}
	d.Dimension = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Dimension) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// FloatingPreset names a reusable floating window geometry.
type FloatingPreset struct {
	Name   string     `yaml:"name"`
	Width  Dimension  `yaml:"width"`
	Height Dimension  `yaml:"height"`
	X      *Dimension `yaml:"x,omitempty"`
	Y      *Dimension `yaml:"y,omitempty"`
	// Center overrides X/Y and centers the resolved size in the container.
	Center bool `yaml:"center,omitempty"`
}

// Rule applies automatic placement to windows matching an app class or
// title substring. Matching is case-insensitive.
type Rule struct {
	App       string `yaml:"app,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Floating  bool   `yaml:"floating,omitempty"`
	Preset    string `yaml:"preset,omitempty"`
	Workspace string `yaml:"workspace,omitempty"`
}

// Matches reports whether the rule applies to a window.
func (r Rule) Matches(app, title string) bool {
	if r.App == "" && r.Title == "" {
		return false
	}
	if r.App != "" && !strings.Contains(strings.ToLower(app), strings.ToLower(r.App)) {
		return false
	}
	if r.Title != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(r.Title)) {
		return false
	}
	return true
}

// WorkspaceDef declares a workspace created at startup.
type WorkspaceDef struct {
	Name   string      `yaml:"name"`
	Screen int         `yaml:"screen"` // Index into detected screens; wraps round-robin.
	Layout LayoutMode  `yaml:"layout,omitempty"`
	Gaps   *GapsConfig `yaml:"gaps,omitempty"` // Overrides the global gaps when set.
}

// Config holds the daemon configuration.
type Config struct {
	DefaultLayout     LayoutMode       `yaml:"default_layout"`
	Gaps              GapsConfig       `yaml:"gaps"`
	Master            MasterConfig     `yaml:"master"`
	Dwindle           DwindleConfig    `yaml:"dwindle"`
	Grid              GridConfig       `yaml:"grid"`
	Presets           []FloatingPreset `yaml:"presets,omitempty"`
	Rules             []Rule           `yaml:"rules,omitempty"`
	SkipApps          []string         `yaml:"skip_apps,omitempty"`
	Workspaces        []WorkspaceDef   `yaml:"workspaces,omitempty"`
	ReconcileInterval int              `yaml:"reconcile_interval"` // Seconds; 0 disables.
	LogLevel          string           `yaml:"log_level"`
}

// DefaultGridMaxWindows caps grid placement when the config leaves it unset.
const DefaultGridMaxWindows = 12

// DefaultConfig returns the built-in configuration: nine workspaces spread
// round-robin across screens, master-stack by default.
func DefaultConfig() *Config {
	workspaces := make([]WorkspaceDef, 0, 9)
	for i := 1; i <= 9; i++ {
		workspaces = append(workspaces, WorkspaceDef{
			Name:   fmt.Sprintf("%d", i),
			Screen: i - 1,
		})
	}

	return &Config{
		DefaultLayout: LayoutMasterStack,
		Gaps: GapsConfig{
			Inner: 8,
			Outer: EdgeGaps{Top: 8, Right: 8, Bottom: 8, Left: 8},
		},
		Master: MasterConfig{
			RatioPercent: 60,
			Position:     MasterLeft,
		},
		Dwindle: DwindleConfig{
			RatioPercent: 50,
		},
		Grid: GridConfig{
			MaxWindows: DefaultGridMaxWindows,
		},
		Presets: []FloatingPreset{
			{Name: "center-large", Width: pctDim(80), Height: pctDim(80), Center: true},
			{Name: "half-left", Width: pctDim(50), Height: pctDim(100), X: dimPtr(geometry.Px(0)), Y: dimPtr(geometry.Px(0))},
			{Name: "half-right", Width: pctDim(50), Height: pctDim(100), X: dimPtr(geometry.Pct(50)), Y: dimPtr(geometry.Px(0))},
		},
		SkipApps: []string{
			"tilewm",
			"Polybar",
			"polybar",
			"Plank",
			"Conky",
			"stalonetray",
			"Dunst",
			"xfce4-notifyd",
		},
		Workspaces:        workspaces,
		ReconcileInterval: 10,
		LogLevel:          "info",
	}
}

func pctDim(v float64) Dimension {
	return Dimension{Dimension: geometry.Pct(v)}
}

func dimPtr(d geometry.Dimension) *Dimension {
	return &Dimension{Dimension: d}
}

// ValidationError reports an invalid config value with its YAML path.
// When the value came from a file the loader attaches its Source.
type ValidationError struct {
	Path   string
	Err    error
	Source Source
}

func (e *ValidationError) Error() string {
	if e.Source.Kind == SourceFile {
		return fmt.Sprintf("config: %s (%s:%d:%d): %v", e.Path, e.Source.File, e.Source.Line, e.Source.Column, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if !ValidMode(c.DefaultLayout) {
		return &ValidationError{Path: "default_layout", Err: fmt.Errorf("invalid layout mode %q", c.DefaultLayout)}
	}
	if c.Gaps.Inner < 0 {
		return &ValidationError{Path: "gaps.inner", Err: fmt.Errorf("inner gap must be >= 0")}
	}
	if c.Gaps.Outer.Top < 0 || c.Gaps.Outer.Right < 0 || c.Gaps.Outer.Bottom < 0 || c.Gaps.Outer.Left < 0 {
		return &ValidationError{Path: "gaps.outer", Err: fmt.Errorf("outer gap values must be >= 0")}
	}
	if c.Master.RatioPercent < 10 || c.Master.RatioPercent > 90 {
		return &ValidationError{Path: "master.ratio", Err: fmt.Errorf("master ratio must be between 10 and 90")}
	}
	switch c.Master.Position {
	case MasterLeft, MasterRight, MasterTop, MasterBottom:
	default:
		return &ValidationError{Path: "master.position", Err: fmt.Errorf("position must be one of: left, right, top, bottom")}
	}
	if c.Dwindle.RatioPercent < 10 || c.Dwindle.RatioPercent > 90 {
		return &ValidationError{Path: "dwindle.ratio", Err: fmt.Errorf("dwindle ratio must be between 10 and 90")}
	}
	if c.Grid.MaxWindows < 1 {
		return &ValidationError{Path: "grid.max_windows", Err: fmt.Errorf("max_windows must be >= 1")}
	}

	seenPresets := make(map[string]struct{}, len(c.Presets))
	for i, preset := range c.Presets {
		path := fmt.Sprintf("presets[%d]", i)
		if strings.TrimSpace(preset.Name) == "" {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("preset name is required")}
		}
		if _, dup := seenPresets[preset.Name]; dup {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("duplicate preset name %q", preset.Name)}
		}
		seenPresets[preset.Name] = struct{}{}
	}

	for i, rule := range c.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if rule.App == "" && rule.Title == "" {
			return &ValidationError{Path: path, Err: fmt.Errorf("rule needs an app or title match")}
		}
		if rule.Preset != "" {
			if _, ok := c.FindPreset(rule.Preset); !ok {
				return &ValidationError{Path: path + ".preset", Err: fmt.Errorf("preset %q not found", rule.Preset)}
			}
		}
	}

	seenWorkspaces := make(map[string]struct{}, len(c.Workspaces))
	for i, ws := range c.Workspaces {
		path := fmt.Sprintf("workspaces[%d]", i)
		if strings.TrimSpace(ws.Name) == "" {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("workspace name is required")}
		}
		if _, dup := seenWorkspaces[ws.Name]; dup {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("duplicate workspace name %q", ws.Name)}
		}
		seenWorkspaces[ws.Name] = struct{}{}
		if ws.Screen < 0 {
			return &ValidationError{Path: path + ".screen", Err: fmt.Errorf("screen index must be >= 0")}
		}
		if ws.Layout != "" && !ValidMode(ws.Layout) {
			return &ValidationError{Path: path + ".layout", Err: fmt.Errorf("invalid layout mode %q", ws.Layout)}
		}
	}
	if len(c.Workspaces) == 0 {
		return &ValidationError{Path: "workspaces", Err: fmt.Errorf("at least one workspace is required")}
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}

	return nil
}

// FindPreset looks up a floating preset by name.
func (c *Config) FindPreset(name string) (FloatingPreset, bool) {
	for _, preset := range c.Presets {
		if preset.Name == name {
			return preset, true
		}
	}
	return FloatingPreset{}, false
}

// RuleFor returns the first rule matching a window, if any.
func (c *Config) RuleFor(app, title string) (Rule, bool) {
	for _, rule := range c.Rules {
		if rule.Matches(app, title) {
			return rule, true
		}
	}
	return Rule{}, false
}

// ShouldSkipApp reports whether an app class is on the observer skip list.
func (c *Config) ShouldSkipApp(app string) bool {
	if app == "" {
		return false
	}
	for _, skip := range c.SkipApps {
		if strings.EqualFold(app, skip) {
			return true
		}
	}
	return false
}

// GapsFor returns the effective gaps for a workspace, honoring any
// per-workspace override.
func (c *Config) GapsFor(workspace string) geometry.Gaps {
	for _, ws := range c.Workspaces {
		if ws.Name == workspace && ws.Gaps != nil {
			return ws.Gaps.Resolve()
		}
	}
	return c.Gaps.Resolve()
}

// LayoutFor returns the startup layout mode for a workspace.
func (c *Config) LayoutFor(workspace string) LayoutMode {
	for _, ws := range c.Workspaces {
		if ws.Name == workspace && ws.Layout != "" {
			return ws.Layout
		}
	}
	return c.DefaultLayout
}
