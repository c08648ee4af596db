package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; capture and
// ledger backends need a restart to swap.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	WeightsChanged bool
	NewWeights     ParserConfig

	LearnedChanged bool
	NewLearned     LearnedConfig

	// CaptureChanged flags a capture entry edit so the operator can be
	// told a restart is needed; the running provider is not swapped.
	CaptureChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.WeightsChanged || d.LearnedChanged || d.CaptureChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Parser.Weights != new.Parser.Weights {
		d.WeightsChanged = true
		d.NewWeights = new.Parser
	}

	if old.Learned != new.Learned {
		d.LearnedChanged = true
		d.NewLearned = new.Learned
	}

	if !captureEqual(old.Capture, new.Capture) {
		d.CaptureChanged = true
	}

	return d
}

// captureEqual compares capture entries field by field. Options maps are
// compared shallowly; nested option values are rare and a false positive
// only produces a restart hint.
func captureEqual(a, b CaptureConfig) bool {
	if a.Provider != b.Provider || a.URL != b.URL || a.Token != b.Token || a.Language != b.Language {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, v := range a.Options {
		if b.Options[k] != v {
			return false
		}
	}
	return true
}
