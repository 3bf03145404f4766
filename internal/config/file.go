package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the config file structure. The same keys are used for the
// JSON, YAML and TOML forms.
type fileConfig struct {
	APIKey            string          `json:"apiKey" yaml:"apiKey" toml:"apiKey"`
	Region            string          `json:"region" yaml:"region" toml:"region"`
	BackupDir         string          `json:"backupDir" yaml:"backupDir" toml:"backupDir"`
	Dashboards        []fileDashboard `json:"dashboards" yaml:"dashboards" toml:"dashboards"`
	HTTPTimeout       *int            `json:"httpTimeout" yaml:"httpTimeout" toml:"httpTimeout"`
	Concurrency       *int            `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	RequestsPerSecond *float64        `json:"requestsPerSecond" yaml:"requestsPerSecond" toml:"requestsPerSecond"`
}

type fileDashboard struct {
	GUID        string `json:"guid" yaml:"guid" toml:"guid"`
	RefreshRate int    `json:"refreshRate" yaml:"refreshRate" toml:"refreshRate"`
}

// loadFile reads the config file at path, choosing the decoder from the
// extension: .yaml/.yml, .toml, anything else is JSON. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &fc)
	case ".toml":
		err = decodeTOML(data, &fc)
	default:
		err = decodeJSON(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &fc, nil
}

func decodeJSON(data []byte, fc *fileConfig) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(fc)
}

func decodeYAML(data []byte, fc *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, fc *fileConfig) error {
	md, err := toml.Decode(string(data), fc)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}
