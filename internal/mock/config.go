package mock

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the mock TFE API settings.
type Config struct {
	Port         int    `yaml:"port"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	// Backend is "sample", "file" or "mongo".
	Backend         string `yaml:"backend"`
	DataFile        string `yaml:"data_file"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	DefaultPageSize int    `yaml:"default_page_size"`
	// SampleWorkspaces sizes the generated dataset of the "sample" backend.
	SampleWorkspaces int `yaml:"sample_workspaces"`
	SampleResources  int `yaml:"sample_resources"`
}

func DefaultConfig() Config {
	return Config{
		Port:             8000,
		Token:            "mock-token",
		Organization:     "example-org",
		Backend:          "sample",
		DataFile:         "data.json",
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "tfe_mock",
		DefaultPageSize:  20,
		SampleWorkspaces: 6,
		SampleResources:  15,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Token == "" {
		c.Token = d.Token
	}
	if c.Organization == "" {
		c.Organization = d.Organization
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.DataFile == "" {
		c.DataFile = d.DataFile
	}
	if c.MongoURI == "" {
		c.MongoURI = d.MongoURI
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = d.MongoDatabase
	}
	if c.DefaultPageSize == 0 {
		c.DefaultPageSize = d.DefaultPageSize
	}
	if c.SampleWorkspaces == 0 {
		c.SampleWorkspaces = d.SampleWorkspaces
	}
	if c.SampleResources == 0 {
		c.SampleResources = d.SampleResources
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.MongoURI = val
	}
}

// ResolvePaths resolves the data file relative to the config directory.
func (c *Config) ResolvePaths(baseDir string) {
	if c.DataFile != "" && !filepath.IsAbs(c.DataFile) {
		c.DataFile = filepath.Join(baseDir, c.DataFile)
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	switch c.Backend {
	case "sample", "file", "mongo":
	default:
		return fmt.Errorf("mock.backend must be one of sample, file, mongo, got %q", c.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("mock.port out of range: %d", c.Port)
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > 100 {
		return fmt.Errorf("mock.default_page_size must be between 1 and 100")
	}
	return nil
}
