package config

// BuildEffectiveConfig layers raw values from the loaded files over the
// built-in defaults. Validation happens separately, on the result.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.DefaultLayout != nil {
		cfg.DefaultLayout = *raw.DefaultLayout
	}
	if raw.Gaps != nil {
		if raw.Gaps.Inner != nil {
			cfg.Gaps.Inner = *raw.Gaps.Inner
		}
		if raw.Gaps.Outer != nil {
			if raw.Gaps.Outer.Top != nil {
				cfg.Gaps.Outer.Top = *raw.Gaps.Outer.Top
			}
			if raw.Gaps.Outer.Right != nil {
				cfg.Gaps.Outer.Right = *raw.Gaps.Outer.Right
			}
			if raw.Gaps.Outer.Bottom != nil {
				cfg.Gaps.Outer.Bottom = *raw.Gaps.Outer.Bottom
			}
			if raw.Gaps.Outer.Left != nil {
				cfg.Gaps.Outer.Left = *raw.Gaps.Outer.Left
			}
		}
	}
	if raw.Master != nil {
		if raw.Master.Ratio != nil {
			cfg.Master.RatioPercent = *raw.Master.Ratio
		}
		if raw.Master.Position != nil {
			cfg.Master.Position = *raw.Master.Position
		}
	}
	if raw.Dwindle != nil && raw.Dwindle.Ratio != nil {
		cfg.Dwindle.RatioPercent = *raw.Dwindle.Ratio
	}
	if raw.Grid != nil && raw.Grid.MaxWindows != nil {
		cfg.Grid.MaxWindows = *raw.Grid.MaxWindows
	}
	if raw.Presets != nil {
		cfg.Presets = raw.Presets
	}
	if raw.Rules != nil {
		cfg.Rules = raw.Rules
	}
	if raw.SkipApps != nil {
		cfg.SkipApps = *raw.SkipApps
	}
	if raw.Workspaces != nil {
		cfg.Workspaces = raw.Workspaces
	}
	if raw.ReconcileInterval != nil {
		cfg.ReconcileInterval = *raw.ReconcileInterval
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}

	return cfg
}
