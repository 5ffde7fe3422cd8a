package provisioning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devlink-protocol/devlink-go/pkg/log"
	"github.com/devlink-protocol/devlink-go/pkg/transport"
)

// Defaults.
const (
	// DefaultHeartbeatInterval is the heartbeat ping period.
	DefaultHeartbeatInterval = 30 * time.Second
)

// Duration wraps time.Duration so YAML configs can use values like "30s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a Go duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config configures a provisioning socket.
type Config struct {
	// Endpoint is the provisioning WebSocket URL.
	Endpoint string `yaml:"endpoint"`

	// HeartbeatInterval is the heartbeat ping period (default: 30s).
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	// DialTimeout bounds the WebSocket dial (default: 30s).
	DialTimeout Duration `yaml:"dial_timeout"`

	// MaxMessageSize is the maximum inbound message size (default: 64KB).
	MaxMessageSize int64 `yaml:"max_message_size"`

	// Logger receives protocol events. Nil disables protocol logging.
	Logger log.Logger `yaml:"-"`
}

// DefaultConfig returns a config with all defaults applied. The Endpoint
// is left empty and must be set by the caller.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = Duration(DefaultHeartbeatInterval)
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = Duration(transport.DefaultDialTimeout)
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = transport.DefaultMaxMessageSize
	}
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	if err := transport.ValidateEndpoint(c.Endpoint); err != nil {
		return err
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("heartbeat interval must not be negative")
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("dial timeout must not be negative")
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	return nil
}

// ParseConfig parses a config from YAML bytes and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// LoadConfig loads a config from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
