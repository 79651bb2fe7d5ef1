package sioclient

import (
	"fmt"
	"net/url"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
)

// engineVersion maps the socket.io protocol version onto the EIO query value.
func (v Version) engineVersion() string {
	if v == V2 {
		return "3"
	}
	return "4"
}

// Default values for optional configuration fields.
const (
	DefaultPath              = "/socket.io/"
	DefaultReconnectWait     = 10
	DefaultReconnectAttempts = -1
	DefaultVersion           = V2
)

type Config struct {
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
	Secure bool   `yaml:"secure"`

	Reconnects        bool `yaml:"reconnects"`
	ReconnectWait     int  `yaml:"reconnectWait"`     // seconds between attempts
	ReconnectAttempts int  `yaml:"reconnectAttempts"` // -1 = unlimited
	ForceNew          bool `yaml:"forceNew"`

	Version       Version           `yaml:"version"`
	ConnectParams map[string]string `yaml:"connectParams"`
	ExtraHeaders  map[string]string `yaml:"extraHeaders"`
}

func DefaultConfig() Config {
	return Config{
		Path:              DefaultPath,
		Reconnects:        true,
		ReconnectWait:     DefaultReconnectWait,
		ReconnectAttempts: DefaultReconnectAttempts,
		Version:           DefaultVersion,
	}
}

// yamlConfig mirrors Config with pointers so absent keys keep their defaults.
type yamlConfig struct {
	URL               string            `yaml:"url"`
	Path              string            `yaml:"path"`
	Secure            bool              `yaml:"secure"`
	Reconnects        *bool             `yaml:"reconnects"`
	ReconnectWait     *int              `yaml:"reconnectWait"`
	ReconnectAttempts *int              `yaml:"reconnectAttempts"`
	ForceNew          bool              `yaml:"forceNew"`
	Version           Version           `yaml:"version"`
	ConnectParams     map[string]string `yaml:"connectParams"`
	ExtraHeaders      map[string]string `yaml:"extraHeaders"`
}

// ParseConfig decodes YAML, expanding ${VAR} references first.
func ParseConfig(data []byte) (Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return Config{}, errors.Wrap(err, "parse config yaml")
	}

	cfg := DefaultConfig()
	cfg.URL = raw.URL
	if raw.Path != "" {
		cfg.Path = raw.Path
	}
	cfg.Secure = raw.Secure
	if raw.Reconnects != nil {
		cfg.Reconnects = *raw.Reconnects
	}
	if raw.ReconnectWait != nil {
		cfg.ReconnectWait = *raw.ReconnectWait
	}
	if raw.ReconnectAttempts != nil {
		cfg.ReconnectAttempts = *raw.ReconnectAttempts
	}
	cfg.ForceNew = raw.ForceNew
	if raw.Version != "" {
		cfg.Version = raw.Version
	}
	cfg.ConnectParams = raw.ConnectParams
	cfg.ExtraHeaders = raw.ExtraHeaders

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}
	return ParseConfig(data)
}

func (c *Config) normalize() {
	if c.ReconnectWait < 0 {
		c.ReconnectWait = -c.ReconnectWait
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
}

func (c Config) Validate() error {
	var err error

	if c.URL == "" {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "url is required"))
	} else if u, perr := url.Parse(c.URL); perr != nil {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "url: %v", perr))
	} else {
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "url scheme %q", u.Scheme))
		}
	}

	if c.ReconnectAttempts < -1 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "reconnectAttempts %d", c.ReconnectAttempts))
	}

	switch c.Version {
	case V2, V3:
	default:
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "version %q", c.Version))
	}

	return err
}

func (c Config) String() string {
	return fmt.Sprintf("Config{url=%s,path=%s,version=%s,reconnects=%v,wait=%ds,attempts=%d,forceNew=%v}",
		c.URL, c.Path, c.Version, c.Reconnects, c.ReconnectWait, c.ReconnectAttempts, c.ForceNew)
}
