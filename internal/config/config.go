package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanofslack/dyndns/internal/secrets"
)

const (
	defaultTTL       = 3600
	defaultMethod    = MethodPatch
	defaultIPService = "https://api.myip.com"
	defaultTimeout   = 30 * time.Second
	defaultLogLevel  = "info"
	defaultLogEnv    = "prod"
)

// Write methods accepted by record.method.
const (
	MethodPatch = "patch"
	MethodPost  = "post"
)

type Config struct {
	API      API      `yaml:"api"`
	Record   Record   `yaml:"record"`
	Source   Source   `yaml:"source"`
	Resolver Resolver `yaml:"resolver"`
	Log      Log      `yaml:"log"`
	Metrics  Metrics  `yaml:"metrics"`

	StatePath string `yaml:"statePath"`
}

type API struct {
	BaseURL    string        `yaml:"base_url"`
	PublicKey  string        `yaml:"public_key"`
	PrivateKey string        `yaml:"private_key"`
	Timeout    time.Duration `yaml:"timeout"`
	Keyring    bool          `yaml:"keyring"`
}

// Credentials returns the key pair used to authenticate against the API.
func (a API) Credentials() Credentials {
	return Credentials{PublicKey: a.PublicKey, PrivateKey: a.PrivateKey}
}

type Record struct {
	Name   string `yaml:"name"`
	TTL    int    `yaml:"ttl"`
	Method string `yaml:"method"`
	DryRun bool   `yaml:"dryRun"`
}

type Source struct {
	URL string `yaml:"url"`
}

type Resolver struct {
	// Nameserver is queried directly instead of the system resolver when set.
	Nameserver string        `yaml:"nameserver"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Log struct {
	Level  string  `yaml:"level"`
	Env    string  `yaml:"env"`
	File   string  `yaml:"file"`
	Rotate *Rotate `yaml:"rotate"`
}

type Rotate struct {
	MaxSize    int  `yaml:"maxSize"`
	MaxAge     int  `yaml:"maxAge"`
	MaxBackups int  `yaml:"maxBackups"`
	Compress   bool `yaml:"compress"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"`
}

type Option func(*options)

type options struct {
	store   secrets.Store
	getenv  func(string) string
	skipAPI bool
}

// WithSecretStore sets the store consulted for credentials when keyring
// lookup is enabled.
func WithSecretStore(s secrets.Store) Option {
	return func(o *options) { o.store = s }
}

// WithoutAPI skips validation of the api section for callers that never
// talk to the provider.
func WithoutAPI() Option {
	return func(o *options) { o.skipAPI = true }
}

// WithGetenv replaces os.Getenv for environment overrides.
func WithGetenv(getenv func(string) string) Option {
	return func(o *options) { o.getenv = getenv }
}

// Load reads configuration from path, applies defaults and DYNDNS_*
// environment overrides, fills missing credentials from the secret store when
// enabled and validates the result. A missing file is not an error.
func Load(path string, opts ...Option) (*Config, error) {
	o := options{getenv: os.Getenv}
	for _, opt := range opts {
		opt(&o)
	}

	var cfg Config
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Default().Warn("fail find config file, proceeding", "path", path)
		case err != nil:
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		default:
			if err := decodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.setDefaults()
	cfg.applyEnv(o.getenv)

	if cfg.API.Keyring && o.store != nil {
		if err := cfg.fillFromSecrets(o.store); err != nil {
			return nil, err
		}
	}

	validate := cfg.Validate
	if o.skipAPI {
		validate = cfg.validateRecord
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".conf", ".ini":
		if err := decodeINI(path, cfg); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) setDefaults() {
	if cfg.Record.TTL == 0 {
		cfg.Record.TTL = defaultTTL
	}
	if cfg.Record.Method == "" {
		cfg.Record.Method = defaultMethod
	}
	if cfg.Source.URL == "" {
		cfg.Source.URL = defaultIPService
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}
}

func (cfg *Config) applyEnv(getenv func(string) string) {
	if v := getenv("DYNDNS_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := getenv("DYNDNS_PUBLIC_KEY"); v != "" {
		cfg.API.PublicKey = v
	}
	if v := getenv("DYNDNS_PRIVATE_KEY"); v != "" {
		cfg.API.PrivateKey = v
	}
	if v := getenv("DYNDNS_KEYRING"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.API.Keyring = b
		} else {
			slog.Default().Warn("fail parse keyring to bool from string", "keyring", v)
		}
	}
	if v := getenv("DYNDNS_FQDN"); v != "" {
		cfg.Record.Name = v
	}
	if v := getenv("DYNDNS_TTL"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			cfg.Record.TTL = ttl
		} else {
			slog.Default().Warn("fail parse ttl to int from string", "ttl", v, "error", err)
		}
	}
	if v := getenv("DYNDNS_METHOD"); v != "" {
		cfg.Record.Method = strings.ToLower(v)
	}
	if v := getenv("DYNDNS_DRY_RUN"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Record.DryRun = b
		} else {
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", v)
		}
	}
	if v := getenv("DYNDNS_IP_SERVICE"); v != "" {
		cfg.Source.URL = v
	}
	if v := getenv("DYNDNS_NAMESERVER"); v != "" {
		cfg.Resolver.Nameserver = v
	}
	if v := getenv("DYNDNS_STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := getenv("DYNDNS_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := getenv("DYNDNS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("DYNDNS_LOG_ENV"); v != "" {
		cfg.Log.Env = v
	}
	if v := getenv("DYNDNS_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

func (cfg *Config) fillFromSecrets(store secrets.Store) error {
	fill := func(key string, dst *string) error {
		if *dst != "" {
			return nil
		}
		v, err := store.Get(key)
		if errors.Is(err, secrets.ErrNotFound) {
			slog.Default().Debug("Key not found in secret store", "key", key)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s from secret store: %w", key, err)
		}
		*dst = v
		return nil
	}
	if err := fill(KeyPublicKey, &cfg.API.PublicKey); err != nil {
		return err
	}
	return fill(KeyPrivateKey, &cfg.API.PrivateKey)
}

// Validate fails on the first required key that is empty, in the order
// base_url, public_key, private_key.
func (cfg *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{KeyBaseURL, cfg.API.BaseURL},
		{KeyPublicKey, cfg.API.PublicKey},
		{KeyPrivateKey, cfg.API.PrivateKey},
	}
	for _, r := range required {
		slog.Default().Debug("Looking for value of key in config", "key", r.key)
		if strings.TrimSpace(r.value) == "" {
			return &MissingKeyError{Key: r.key}
		}
	}

	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &InvalidValueError{Key: KeyBaseURL, Value: cfg.API.BaseURL, Reason: "must be an absolute http(s) URL"}
	}
	return cfg.validateRecord()
}

func (cfg *Config) validateRecord() error {
	switch cfg.Record.Method {
	case MethodPatch, MethodPost:
	default:
		return &InvalidValueError{Key: "method", Value: cfg.Record.Method, Reason: "must be patch or post"}
	}
	if cfg.Record.TTL < 0 {
		return &InvalidValueError{Key: "ttl", Value: strconv.Itoa(cfg.Record.TTL), Reason: "must not be negative"}
	}
	return nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}
