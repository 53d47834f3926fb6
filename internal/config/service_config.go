package config

// ServiceConfig is the lifecycle every config section goes through after
// the YAML files are merged.
type ServiceConfig interface {
	// ApplyDefaults fills zero values.
	ApplyDefaults()

	// ApplyEnvOverrides applies environment variable overrides.
	ApplyEnvOverrides()

	// ResolvePaths makes relative paths absolute against the config directory.
	ResolvePaths(configDir string)

	// Validate returns an error if the section is invalid.
	Validate() error
}

// ApplyServiceConfigs runs ApplyDefaults, ApplyEnvOverrides, ResolvePaths and
// Validate on each section in order, stopping at the first invalid one.
func ApplyServiceConfigs(configDir string, configs ...ServiceConfig) error {
	for _, cfg := range configs {
		cfg.ApplyDefaults()
		cfg.ApplyEnvOverrides()
		cfg.ResolvePaths(configDir)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}
