package config

import (
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// decodeINI reads the dyndns.conf layout: an [api] section with base_url,
// public_key and private_key, plus optional sections mirroring the YAML keys.
func decodeINI(path string, cfg *Config) error {
	f, err := ini.Load(path)
	if err != nil {
		return err
	}

	api := f.Section("api")
	cfg.API.BaseURL = api.Key(KeyBaseURL).String()
	cfg.API.PublicKey = api.Key(KeyPublicKey).String()
	cfg.API.PrivateKey = api.Key(KeyPrivateKey).String()
	cfg.API.Keyring = api.Key("keyring").MustBool(false)
	if v := api.Key("timeout").String(); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &InvalidValueError{Key: "timeout", Value: v, Reason: err.Error()}
		}
		cfg.API.Timeout = d
	}

	record := f.Section("record")
	cfg.Record.Name = record.Key("name").String()
	cfg.Record.Method = record.Key("method").String()
	cfg.Record.DryRun = record.Key("dry_run").MustBool(false)
	if v := record.Key("ttl").String(); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return &InvalidValueError{Key: "ttl", Value: v, Reason: "must be an integer"}
		}
		cfg.Record.TTL = ttl
	}

	cfg.Source.URL = f.Section("source").Key("url").String()
	cfg.Resolver.Nameserver = f.Section("resolver").Key("nameserver").String()
	cfg.StatePath = f.Section("state").Key("path").String()
	cfg.Metrics.Textfile = f.Section("metrics").Key("textfile").String()

	log := f.Section("log")
	cfg.Log.Level = log.Key("level").String()
	cfg.Log.Env = log.Key("env").String()
	cfg.Log.File = log.Key("file").String()
	return nil
}
