package host

import (
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the runtime's tunable surface: heap sizing, the GC pressure
// ratio, and the locale a freshly-created Runtime's string comparator
// uses. LoadConfig reads one from a YAML file with goccy/go-yaml;
// DefaultConfig supplies the values otherwise. New takes the Config
// value directly.
type Config struct {
	// HeapMarkStackCapacity bounds the collector's bounded mark stack
	// (see heap.New); larger values trade memory for fewer stack-full
	// fallback re-walks on deeply-nested object graphs.
	HeapMarkStackCapacity int `yaml:"heapMarkStackCapacity"`

	// GCTriggerRatio is how many times larger the live set may grow
	// before a collection is due (heap.Heap.PressureMultiple).
	GCTriggerRatio float64 `yaml:"gcTriggerRatio"`

	// MaxCells optionally caps total live cells; zero means unbounded.
	MaxCells int64 `yaml:"maxCells"`

	// Locale seeds the ESRT_LOCALE-driven string comparator (see
	// locale.go) when the environment variable itself is unset.
	Locale string `yaml:"locale"`
}

// DefaultConfig mirrors the constants the teacher's own constructors
// hard-code (a 1<<16 mark-stack, a 2x growth multiple) so that loading
// no esrt.yaml at all behaves identically to constructing a Runtime by
// hand.
func DefaultConfig() Config {
	return Config{
		HeapMarkStackCapacity: 1 << 16,
		GCTriggerRatio:        2.0,
		Locale:                "en",
	}
}

// LoadConfig reads and parses path as YAML, starting from DefaultConfig
// so a partial file only overrides the fields it sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
