package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"strata/internal/tier"
)

// PinsFile is the optional project file that fixes levels for specific units.
const PinsFile = "strata.toml"

// PinsDocument is the root structure of strata.toml
//
//	[pins]
//	Button = "atom"
//	LegacyWizard = "skip"
type PinsDocument struct {
	Version int               `toml:"version"`
	Pins    map[string]string `toml:"pins"`
}

// LoadPins reads strata.toml from the project root. A missing file yields no pins.
func LoadPins(repoRoot string) (map[string]tier.Level, error) {
	path := filepath.Join(repoRoot, PinsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]tier.Level{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", PinsFile, err)
	}
	return ParsePins(data)
}

// ParsePins parses strata.toml content.
func ParsePins(data []byte) (map[string]tier.Level, error) {
	var doc PinsDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", PinsFile, err)
	}

	names := make([]string, 0, len(doc.Pins))
	for name := range doc.Pins {
		names = append(names, name)
	}
	sort.Strings(names)

	pins := make(map[string]tier.Level, len(doc.Pins))
	for _, name := range names {
		level, err := tier.Parse(doc.Pins[name])
		if err != nil {
			return nil, &ConfigError{Field: "pins." + name, Message: err.Error()}
		}
		pins[name] = level
	}
	return pins, nil
}
