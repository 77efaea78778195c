package config

import (
	"errors"
	"fmt"
)

// Required keys, named as they appear in configuration files.
const (
	KeyBaseURL    = "base_url"
	KeyPublicKey  = "public_key"
	KeyPrivateKey = "private_key"
)

// ErrConfiguration matches every configuration error returned by Load.
var ErrConfiguration = errors.New("configuration error")

// MissingKeyError reports a required key that resolved to an empty value.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("unable to determine value for '%s' in config", e.Key)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrConfiguration
}

// InvalidValueError reports a key whose value cannot be used.
type InvalidValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for '%s': %s", e.Value, e.Key, e.Reason)
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrConfiguration
}
