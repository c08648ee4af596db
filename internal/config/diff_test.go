package config_test

import (
	"testing"

	"github.com/parlando-app/parlando/internal/config"
	"github.com/parlando-app/parlando/internal/parse"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Capture: config.CaptureConfig{Provider: "typed"},
		Learned: config.LearnedConfig{Enabled: true},
	}
	d := config.Diff(cfg, cfg)
	if d.Any() {
		t.Errorf("expected no changes for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.WeightsChanged || d.LearnedChanged || d.CaptureChanged {
		t.Errorf("unrelated flags set: %+v", d)
	}
}

func TestDiff_WeightsChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Parser: config.ParserConfig{Weights: parse.Weights{Intent: 0.6, Entity: 0.3, Capture: 0.1}},
	}
	new := &config.Config{
		Parser: config.ParserConfig{Weights: parse.Weights{Intent: 0.5, Entity: 0.4, Capture: 0.1}},
	}

	d := config.Diff(old, new)
	if !d.WeightsChanged {
		t.Error("expected WeightsChanged=true")
	}
	if d.NewWeights.Weights.Intent != 0.5 {
		t.Errorf("NewWeights.Intent = %v, want 0.5", d.NewWeights.Weights.Intent)
	}
}

func TestDiff_LearnedChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Learned: config.LearnedConfig{Enabled: false}}
	new := &config.Config{Learned: config.LearnedConfig{Enabled: true, PhoneticThreshold: 0.75}}

	d := config.Diff(old, new)
	if !d.LearnedChanged {
		t.Error("expected LearnedChanged=true")
	}
	if !d.NewLearned.Enabled {
		t.Error("expected NewLearned.Enabled=true")
	}
}

func TestDiff_CaptureChanged(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		old  config.CaptureConfig
		new  config.CaptureConfig
		want bool
	}{
		{
			name: "provider swap",
			old:  config.CaptureConfig{Provider: "typed"},
			new:  config.CaptureConfig{Provider: "gateway", URL: "ws://localhost:9000"},
			want: true,
		},
		{
			name: "url change",
			old:  config.CaptureConfig{Provider: "gateway", URL: "ws://a"},
			new:  config.CaptureConfig{Provider: "gateway", URL: "ws://b"},
			want: true,
		},
		{
			name: "option value change",
			old:  config.CaptureConfig{Provider: "whisper", URL: "http://x", Options: map[string]any{"audio_path": "a.wav"}},
			new:  config.CaptureConfig{Provider: "whisper", URL: "http://x", Options: map[string]any{"audio_path": "b.wav"}},
			want: true,
		},
		{
			name: "identical with options",
			old:  config.CaptureConfig{Provider: "whisper", URL: "http://x", Options: map[string]any{"audio_path": "a.wav"}},
			new:  config.CaptureConfig{Provider: "whisper", URL: "http://x", Options: map[string]any{"audio_path": "a.wav"}},
			want: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := config.Diff(&config.Config{Capture: tc.old}, &config.Config{Capture: tc.new})
			if d.CaptureChanged != tc.want {
				t.Errorf("CaptureChanged = %v, want %v", d.CaptureChanged, tc.want)
			}
		})
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Learned: config.LearnedConfig{Enabled: false},
	}
	new := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogWarn},
		Learned: config.LearnedConfig{Enabled: true},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.LearnedChanged {
		t.Error("expected LearnedChanged=true")
	}
	if !d.Any() {
		t.Error("expected Any()=true")
	}
}
