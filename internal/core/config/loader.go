package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}

	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Client.MaxConcurrentRequests == 0 {
		cfg.Client.MaxConcurrentRequests = 3
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30 * time.Second
	}
	if cfg.Client.MaxRetries == 0 {
		cfg.Client.MaxRetries = 3
	}
	if cfg.Client.InitialDelay == 0 {
		cfg.Client.InitialDelay = time.Second
	}
	if cfg.Client.MaxDelay == 0 {
		cfg.Client.MaxDelay = 30 * time.Second
	}
	if cfg.Client.BackoffMultiplier == 0 {
		cfg.Client.BackoffMultiplier = 2.0
	}
	if cfg.Client.MaxRetryAfter == 0 {
		cfg.Client.MaxRetryAfter = 2 * time.Minute
	}
	if cfg.Client.MaxPromptLength == 0 {
		cfg.Client.MaxPromptLength = 1000
	}

	if cfg.Poll.InitialInterval == 0 {
		cfg.Poll.InitialInterval = 5 * time.Second
	}
	if cfg.Poll.MinInterval == 0 {
		cfg.Poll.MinInterval = time.Second
	}
	if cfg.Poll.MaxInterval == 0 {
		cfg.Poll.MaxInterval = 30 * time.Second
	}
	if cfg.Poll.AccelerationThreshold == 0 {
		cfg.Poll.AccelerationThreshold = 80
	}
	if cfg.Poll.MaxFailures == 0 {
		cfg.Poll.MaxFailures = 5
	}

	if cfg.History.SyncInterval == 0 {
		cfg.History.SyncInterval = time.Minute
	}
	if cfg.History.SyncLimit == 0 {
		cfg.History.SyncLimit = 50
	}
}
