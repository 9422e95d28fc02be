package config

// LoggingConfig configures the zap-backed category logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"` // console encoder instead of JSON
}
