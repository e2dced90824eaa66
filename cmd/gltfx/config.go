package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the command line flags. Flags given on the
// command line win over the file.
type Config struct {
	Verbose     bool   `yaml:"verbose" toml:"verbose"`
	Stats       bool   `yaml:"stats" toml:"stats"`
	Layout      string `yaml:"layout" toml:"layout"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency"`

	Meshopt  MeshoptConfig  `yaml:"meshopt" toml:"meshopt"`
	Draco    DracoConfig    `yaml:"draco" toml:"draco"`
	Validate ValidateConfig `yaml:"validate" toml:"validate"`
}

type MeshoptConfig struct {
	Method string `yaml:"method" toml:"method"`
}

type DracoConfig struct {
	Method           string         `yaml:"method" toml:"method"`
	QuantizationBits map[string]int `yaml:"quantizationBits" toml:"quantization_bits"`
}

type ValidateConfig struct {
	Limit  int      `yaml:"limit" toml:"limit"`
	Ignore []string `yaml:"ignore" toml:"ignore"`
}

func defaultConfig() Config {
	return Config{
		Layout:   "interleaved",
		Meshopt:  MeshoptConfig{Method: "quantize"},
		Draco:    DracoConfig{Method: "edgebreaker"},
		Validate: ValidateConfig{Limit: 100},
	}
}

// loadConfig reads a YAML or TOML file over the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, errors.Newf("config: unsupported format %q (want .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}
