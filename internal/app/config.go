package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	graphyaml "github.com/specialistvlad/taskgraph/internal/yaml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read into Config.
const EnvPrefix = "TASKGRAPH_"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// GraphPath is a graph document or a directory of them (.hcl, .yaml, .yml).
	GraphPath string `koanf:"graph_path" validate:"required"`

	LogFormat       string `koanf:"log_format" validate:"oneof=text json pretty"`
	LogLevel        string `koanf:"log_level" validate:"oneof=debug info warn error"`
	HealthcheckPort int    `koanf:"healthcheck_port" validate:"min=0,max=65535"`

	Workers       int    `koanf:"workers" validate:"min=1"`
	FailurePolicy string `koanf:"failure_policy" validate:"oneof=continue fail-fast"`

	ArtifactsDir      string `koanf:"artifacts_dir" validate:"required"`
	ArtifactOverwrite bool   `koanf:"artifact_overwrite"`

	TrackingFile      string `koanf:"tracking_file"`
	TrackingSocketURL string `koanf:"tracking_socket_url" validate:"omitempty,url"`

	// JobAttempts bounds how often a failed job is re-run. Validation errors
	// are never retried.
	JobAttempts   int           `koanf:"job_attempts" validate:"min=1"`
	RetryInterval time.Duration `koanf:"retry_interval"`

	// Params overrides entrypoint parameter defaults.
	Params map[string]any `koanf:"params"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		LogFormat:     "text",
		LogLevel:      "info",
		Workers:       4,
		FailurePolicy: "continue",
		ArtifactsDir:  "artifacts",
		JobAttempts:   1,
		RetryInterval: 500 * time.Millisecond,
		Params:        map[string]any{},
	}
}

// LoadConfig layers, lowest precedence first: defaults, the optional YAML
// config file, TASKGRAPH_* environment variables and finally overrides
// (usually CLI flags, keyed by koanf path). The result is validated.
func LoadConfig(configFile string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
		if err := k.Load(rawMap(raw), nil); err != nil {
			return nil, fmt.Errorf("failed to apply config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(rawMap(overrides), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if cfg.Params != nil {
		cfg.Params = graphyaml.Normalize(cfg.Params).(map[string]any)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// rawMap is a koanf.Provider adapter for map[string]any data.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
