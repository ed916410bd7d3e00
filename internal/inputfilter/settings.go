package inputfilter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings toggles the parts of the blocklist and the referer check. Fields
// missing from the settings file keep their default.
type Settings struct {
	SQLProtection bool   `yaml:"sql_protection"`
	XSSProtection bool   `yaml:"xss_protection"`
	RFIProtection bool   `yaml:"rfi_protection"`
	OwnFilter     string `yaml:"own_filter"`
	RefererCheck  bool   `yaml:"referer_check"`
}

func DefaultSettings() Settings {
	return Settings{
		SQLProtection: true,
		XSSProtection: true,
		RFIProtection: true,
		RefererCheck:  true,
	}
}

// LoadSettings reads the YAML settings file at path. A missing or empty file
// yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return DefaultSettings(), fmt.Errorf("decode %s: %w", path, err)
	}

	return settings, nil
}
