package config

// loader.go - configuration loading from a YAML file and the environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	mgerr "minignet/internal/errors"
)

// LoadFile overlays the YAML document at path onto cfg.  Keys absent
// from the file leave cfg untouched; unknown keys are an error.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &mgerr.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return &mgerr.ConfigError{Field: "config", Value: path, Message: fmt.Sprintf("parse: %v", err)}
	}
	return nil
}

// LoadFromEnv overlays MINIGNET_* environment variables onto cfg.  Only
// variables that are set override the existing value.  Durations use
// Go syntax ("250ms", "5s"); booleans accept strconv.ParseBool forms.
func LoadFromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return &mgerr.ConfigError{Field: "env", Message: err.Error()}
	}
	return nil
}
