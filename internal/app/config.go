package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // .hcl files or directories, layered in order
	Overrides   []string // key.path=value command-line overrides

	LogFormat string
	LogLevel  string

	// Rank is the process rank in a multi-process launch. Only the
	// rank-zero process logs and persists artifacts.
	Rank int
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one config path is required")
	}
	return &cfg, nil
}
