package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Features.EnableMarkers {
		t.Error("markers disabled by default")
	}
	if cfg.Rendering.MarkerSizePx <= 0 {
		t.Error("non-positive default marker size")
	}
	if len(cfg.Markers.PlaceClasses) == 0 {
		t.Error("no default place classes")
	}
	if cfg.Markers.MaxMarkers <= 0 {
		t.Error("non-positive marker cap")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	SetMarkerSize(48)
	if err := Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	SetMarkerSize(16)
	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetMarkerSize(); got != 48 {
		t.Errorf("marker size after reload = %v, want 48", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("unexpected error type: %v", err)
	}
}

func TestAdjustMarkerSizeClamps(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		delta float64
		want  float64
	}{
		{name: "grow", start: 32, delta: 8, want: 40},
		{name: "shrink", start: 32, delta: -8, want: 24},
		{name: "clamp low", start: 10, delta: -50, want: 8},
		{name: "clamp high", start: 120, delta: 50, want: 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetMarkerSize(tt.start)
			if got := AdjustMarkerSize(tt.delta); got != tt.want {
				t.Errorf("AdjustMarkerSize(%v) from %v = %v, want %v", tt.delta, tt.start, got, tt.want)
			}
		})
	}
}
