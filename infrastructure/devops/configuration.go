package devops

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// AgentConfig is the field device's YAML configuration. A device is
// provisioned once; after that the file only changes when the device is
// re-enrolled, so the config is loaded a single time per process.
type AgentConfig struct {
	ServerURL string `yaml:"server_url"`
	AuthToken string `yaml:"auth_token"`
	DeviceID  string `yaml:"device_id"`
	Operator  string `yaml:"operator"`
	District  string `yaml:"district"`
	DBPath    string `yaml:"db_path"`
	MediaDir  string `yaml:"media_dir"`
	Sync      struct {
		MaxAttempts int `yaml:"max_attempts"`
		BackoffMs   int `yaml:"backoff_ms"`
		IntervalSec int `yaml:"interval_sec"`
	} `yaml:"sync"`
}

var (
	once    sync.Once
	cfg     *AgentConfig
	loadErr error
)

func LoadAgentConfig(path string) (*AgentConfig, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("read config: %w", err)
			return
		}

		parsed := &AgentConfig{}
		if err := yaml.Unmarshal(raw, parsed); err != nil {
			loadErr = fmt.Errorf("unmarshal yaml: %w", err)
			return
		}

		if parsed.DBPath == "" {
			parsed.DBPath = "drillwatch.db"
		}
		if parsed.MediaDir == "" {
			parsed.MediaDir = "media"
		}
		if parsed.Sync.MaxAttempts == 0 {
			parsed.Sync.MaxAttempts = 3
		}
		if parsed.Sync.BackoffMs == 0 {
			parsed.Sync.BackoffMs = 500
		}
		if parsed.Sync.IntervalSec == 0 {
			parsed.Sync.IntervalSec = 300
		}

		cfg = parsed
	})

	return cfg, loadErr
}
