// internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DeckName      string `yaml:"deck_name"`
	DefaultFormat string `yaml:"default_format"`

	Service struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"service"`

	Annotation struct {
		MaxIngestDim   int `yaml:"max_ingest_dim"`
		MaxAnnotateDim int `yaml:"max_annotate_dim"`
		JPEGQuality    int `yaml:"jpeg_quality"`
	} `yaml:"annotation"`

	// FlatMedia places embedded media at archive root instead of a media/
	// subfolder. Several importers cannot resolve subfolder-relative media
	// references, so flat is the default.
	FlatMedia *bool `yaml:"flat_media"`

	AnkiConnectURL string `yaml:"anki_connect_url"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied, for running without
// a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DeckName == "" {
		c.DeckName = "Anatomify"
	}
	if c.DefaultFormat == "" {
		c.DefaultFormat = "archive"
	}
	if c.Service.Model == "" {
		c.Service.Model = "gemini-2.0-flash"
	}
	if c.Service.APIKey == "" {
		c.Service.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Annotation.MaxIngestDim == 0 {
		c.Annotation.MaxIngestDim = 2500
	}
	if c.Annotation.MaxAnnotateDim == 0 {
		c.Annotation.MaxAnnotateDim = 1200
	}
	if c.Annotation.JPEGQuality == 0 {
		c.Annotation.JPEGQuality = 85
	}
	if c.FlatMedia == nil {
		flat := true
		c.FlatMedia = &flat
	}
	if c.AnkiConnectURL == "" {
		c.AnkiConnectURL = "http://localhost:8765"
	}
}
