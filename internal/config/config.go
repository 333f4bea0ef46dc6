package config

import (
	"encoding/json"
	"os"
	"sync"
)

// Config holds application configuration and feature flags
type Config struct {
	// Feature flags
	Features Features `json:"features"`

	// Rendering parameters
	Rendering Rendering `json:"rendering"`

	// Marker overlay settings
	Markers Markers `json:"markers"`
}

// Features contains feature flags for development
type Features struct {
	// EnableMarkers toggles the marker overlay pass
	EnableMarkers bool `json:"enable_markers"`

	// EnableTileServer starts the local HTTP tile/marker server
	EnableTileServer bool `json:"enable_tile_server"`
}

// Rendering contains rendering parameters
type Rendering struct {
	// MarkerSizePx is the on-screen marker icon size in pixels
	MarkerSizePx float64 `json:"marker_size_px"`
}

// Markers contains marker source settings
type Markers struct {
	// IconDir is the directory marker icon PNGs are loaded from
	IconDir string `json:"icon_dir"`

	// DefaultIcon is the icon name used when a marker has none
	DefaultIcon string `json:"default_icon"`

	// PlaceClasses selects which vector-tile place classes become markers
	PlaceClasses []string `json:"place_classes"`

	// MaxMarkers caps the marker set size per rebuild
	MaxMarkers int `json:"max_markers"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Features: Features{
			EnableMarkers:    true,
			EnableTileServer: false,
		},
		Rendering: Rendering{
			MarkerSizePx: 32.0,
		},
		Markers: Markers{
			IconDir:      "icons",
			DefaultIcon:  "pin",
			PlaceClasses: []string{"city", "town"},
			MaxMarkers:   256,
		},
	}
}

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		instance = DefaultConfig()
		// Try to load from file
		if data, err := os.ReadFile("config.json"); err == nil {
			json.Unmarshal(data, instance)
		}
	})
	return instance
}

// Load loads configuration from a file
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	return json.Unmarshal(data, instance)
}

// Save saves configuration to a file
func Save(path string) error {
	mu.RLock()
	defer mu.RUnlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	data, err := json.MarshalIndent(instance, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetMarkerSize sets the marker icon size in pixels
func SetMarkerSize(px float64) {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	if px < 8 {
		px = 8
	}
	if px > 128 {
		px = 128
	}
	instance.Rendering.MarkerSizePx = px
}

// GetMarkerSize returns the current marker icon size in pixels
func GetMarkerSize() float64 {
	mu.RLock()
	defer mu.RUnlock()

	if instance == nil {
		return 32.0
	}
	return instance.Rendering.MarkerSizePx
}

// AdjustMarkerSize adjusts the marker size by a delta and returns the result
func AdjustMarkerSize(delta float64) float64 {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	instance.Rendering.MarkerSizePx += delta
	if instance.Rendering.MarkerSizePx < 8 {
		instance.Rendering.MarkerSizePx = 8
	}
	if instance.Rendering.MarkerSizePx > 128 {
		instance.Rendering.MarkerSizePx = 128
	}

	return instance.Rendering.MarkerSizePx
}
