package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "HOTD"

const (
	DirectoryNone     = "none"
	DirectorySlack    = "slack"
	DirectoryRealtime = "realtime"
)

type Config struct {
	API       APIConfig       `json:"api"       yaml:"api"`
	Database  DatabaseConfig  `json:"database"  yaml:"database"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`
	Trigger   TriggerConfig   `json:"trigger"   yaml:"trigger"`
	Directory DirectoryConfig `json:"directory" yaml:"directory"`
}

type APIConfig struct {
	Addr         string   `json:"addr"          yaml:"addr"          split_words:"true"`
	MemberHeader string   `json:"member_header" yaml:"member_header" split_words:"true"`
	CORSOrigins  []string `json:"cors_origins"  yaml:"cors_origins"  split_words:"true"`
}

type DatabaseConfig struct {
	Driver          string   `json:"driver"            yaml:"driver"            split_words:"true"`
	DSN             string   `json:"dsn"               yaml:"dsn"               split_words:"true"`
	MaxOpenConns    int      `json:"max_open_conns"    yaml:"max_open_conns"    split_words:"true"`
	MaxIdleConns    int      `json:"max_idle_conns"    yaml:"max_idle_conns"    split_words:"true"`
	ConnMaxLifetime Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" split_words:"true"`
}

type ReconcileConfig struct {
	Concurrency int `json:"concurrency" yaml:"concurrency" split_words:"true"`
	Attempts    int `json:"attempts"    yaml:"attempts"    split_words:"true"`
}

type TriggerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" split_words:"true"`
	At      string `json:"at"      yaml:"at"      split_words:"true"` // HH:MM, UTC
}

type DirectoryConfig struct {
	Kind        string   `json:"kind"         yaml:"kind"         split_words:"true"`
	SlackToken  string   `json:"slack_token"  yaml:"slack_token"  split_words:"true"`
	RealtimeURL string   `json:"realtime_url" yaml:"realtime_url" split_words:"true"`
	Timeout     Duration `json:"timeout"      yaml:"timeout"      split_words:"true"`
}

// Duration accepts Go duration strings in JSON, YAML and environment values.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.Decode(node.Value)
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			Addr:         ":8080",
			MemberHeader: "X-Member-Id",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			DSN:             "host=localhost user=hotd dbname=herooftheday port=5432 sslmode=disable",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: Duration(5 * time.Minute),
		},
		Reconcile: ReconcileConfig{
			Concurrency: 4,
			Attempts:    3,
		},
		Trigger: TriggerConfig{
			At: "00:00",
		},
		Directory: DirectoryConfig{
			Kind:    DirectoryNone,
			Timeout: Duration(10 * time.Second),
		},
	}
}

// LoadConfig reads defaults, then the optional config file (JSON or YAML
// by extension), then a .env file if present, then HOTD_* environment
// variables.
func LoadConfig(filePath string) (*Config, error) {
	config := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = json.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filePath, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(envPrefix, config); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Directory.Kind {
	case DirectoryNone, "":
	case DirectorySlack:
		if c.Directory.SlackToken == "" {
			return errors.New("directory.slack_token is required for the slack directory")
		}
	case DirectoryRealtime:
		if c.Directory.RealtimeURL == "" {
			return errors.New("directory.realtime_url is required for the realtime directory")
		}
	default:
		return fmt.Errorf("unsupported directory kind %q", c.Directory.Kind)
	}
	if _, err := c.Trigger.TimeOfDay(); err != nil {
		return err
	}
	if c.Reconcile.Attempts < 1 {
		c.Reconcile.Attempts = 1
	}
	if c.Reconcile.Concurrency < 1 {
		c.Reconcile.Concurrency = 1
	}
	return nil
}

// TimeOfDay returns the configured trigger time as an offset from UTC midnight.
func (t TriggerConfig) TimeOfDay() (time.Duration, error) {
	at := t.At
	if at == "" {
		at = "00:00"
	}
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return 0, fmt.Errorf("invalid trigger.at %q: %w", t.At, err)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
