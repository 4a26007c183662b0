// Package config resolves client settings from an optional YAML file and the
// environment. Command-line flags are applied on top by the cli package.
package config

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL = "http://localhost:4000"
	DefaultTimeout    = 30 * time.Second
	DefaultProfile    = "default"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreTable  = "table"
)

// Environment variables read by Load.
const (
	EnvConfigFile   = "PROJECTBOARD_CONFIG"
	EnvAPIBaseURL   = "PROJECTBOARD_API_BASE_URL"
	EnvTimeout      = "PROJECTBOARD_HTTP_TIMEOUT"
	EnvProfile      = "PROJECTBOARD_PROFILE"
	EnvDebug        = "DEBUG"
	EnvSessionStore = "SESSION_STORE"
	EnvSessionFile  = "PROJECTBOARD_SESSION_FILE"
	EnvRedis        = "REDIS_CONNECTION_STRING"
	EnvSessionTTL   = "SESSION_TTL"
	EnvStorage      = "STORAGE_CONNECTION_STRING"
	EnvSessionTable = "SESSION_TABLE"
)

type Config struct {
	APIBaseURL string        `yaml:"api_base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Debug      bool          `yaml:"debug"`
	Profile    string        `yaml:"profile"`
	Session    Session       `yaml:"session"`
}

// Session selects and configures the session storage backend.
type Session struct {
	Store string `yaml:"store"`

	File string `yaml:"file"`

	Redis       string        `yaml:"redis"`
	RedisPrefix string        `yaml:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl"`

	StorageConnectionString string `yaml:"storage_connection_string"`
	Table                   string `yaml:"table"`
}

func Default() Config {
	return Config{
		APIBaseURL: DefaultAPIBaseURL,
		Timeout:    DefaultTimeout,
		Profile:    DefaultProfile,
		Session:    Session{Store: StoreFile, Table: "sessions"},
	}
}

// Path returns the config file location: $PROJECTBOARD_CONFIG when set, else
// $XDG_CONFIG_HOME/projectboard/config.yaml, else ~/.config/projectboard/config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "projectboard", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "projectboard", "config.yaml")
}

// Load reads the file at path (a missing file is not an error), applies the
// process environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.Session.Store = strings.ToLower(cfg.Session.Store)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup has the signature of
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", key, v)
		}
		*dst = d
		return nil
	}

	str(EnvAPIBaseURL, &c.APIBaseURL)
	str(EnvProfile, &c.Profile)
	str(EnvSessionStore, &c.Session.Store)
	str(EnvSessionFile, &c.Session.File)
	str(EnvRedis, &c.Session.Redis)
	str(EnvStorage, &c.Session.StorageConnectionString)
	str(EnvSessionTable, &c.Session.Table)
	if v, ok := lookup(EnvDebug); ok && v != "" {
		dbg, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvDebug, v)
		}
		c.Debug = dbg
	}
	if err := dur(EnvTimeout, &c.Timeout); err != nil {
		return err
	}
	return dur(EnvSessionTTL, &c.Session.TTL)
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be greater than zero", c.Timeout)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("invalid session ttl %s", c.Session.TTL)
	}
	switch c.Session.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.Session.Redis == "" {
			return errors.New("missing redis config")
		}
	case StoreTable:
		if c.Session.StorageConnectionString == "" || c.Session.Table == "" {
			return errors.New("missing storage config")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	return nil
}

// RedisOptions accepts a redis:// URL or the "host:port,password=...,ssl=true"
// form used by Azure Cache for Redis.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, errors.New("missing redis config")
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
