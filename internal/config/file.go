package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration lets the YAML file use Go duration strings ("30s", "2m"),
// which yaml.v3 does not decode into time.Duration on its own.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// fileValues is the optional YAML config file layered under the
// environment: a value set here becomes the default the corresponding
// environment variable can still override.
type fileValues struct {
	ListenAddr       string   `yaml:"listen_addr"`
	DatabaseURL      string   `yaml:"database_url"`
	UserAgent        string   `yaml:"user_agent"`
	PollCronSchedule string   `yaml:"poll_cron_schedule"`
	PollTimezone     string   `yaml:"poll_timezone"`
	RequestTimeout   duration `yaml:"request_timeout"`
	RateLimitRPS     int      `yaml:"rate_limit_rps"`
	RateLimitBurst   int      `yaml:"rate_limit_burst"`
}

// loadFile reads the YAML file at path. A missing file is not an
// error — the file layer is optional — but unparseable YAML is
// reported as a warning so a typo doesn't silently revert the whole
// deployment to built-in defaults.
func loadFile(path string) (fileValues, []string) {
	var v fileValues

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return v, []string{fmt.Sprintf("config file %s unreadable: %v", path, err)}
	}

	if err := yaml.Unmarshal(data, &v); err != nil {
		return fileValues{}, []string{fmt.Sprintf("config file %s invalid: %v", path, err)}
	}
	return v, nil
}

// orDefault returns value when non-zero, fallback otherwise.
func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
