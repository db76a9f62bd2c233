package config

// RawConfig mirrors Config with every field optional, so the loader can
// tell an absent value apart from an explicit zero before defaults are
// applied.
type RawConfig struct {
	DefaultLayout     *LayoutMode      `yaml:"default_layout"`
	Gaps              *RawGaps         `yaml:"gaps"`
	Master            *RawMaster       `yaml:"master"`
	Dwindle           *RawDwindle      `yaml:"dwindle"`
	Grid              *RawGrid         `yaml:"grid"`
	Presets           []FloatingPreset `yaml:"presets"`
	Rules             []Rule           `yaml:"rules"`
	SkipApps          *[]string        `yaml:"skip_apps"`
	Workspaces        []WorkspaceDef   `yaml:"workspaces"`
	ReconcileInterval *int             `yaml:"reconcile_interval"`
	LogLevel          *string          `yaml:"log_level"`
}

type RawGaps struct {
	Inner *int         `yaml:"inner"`
	Outer *RawEdgeGaps `yaml:"outer"`
}

type RawEdgeGaps struct {
	Top    *int `yaml:"top"`
	Right  *int `yaml:"right"`
	Bottom *int `yaml:"bottom"`
	Left   *int `yaml:"left"`
}

type RawMaster struct {
	Ratio    *int            `yaml:"ratio"`
	Position *MasterPosition `yaml:"position"`
}

type RawDwindle struct {
	Ratio *int `yaml:"ratio"`
}

type RawGrid struct {
	MaxWindows *int `yaml:"max_windows"`
}
