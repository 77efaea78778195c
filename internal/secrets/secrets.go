// Package secrets stores API credentials in the operating system keychain.
package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keychain service entries are filed under.
const ServiceName = "dyndns"

var ErrNotFound = errors.New("secret not found")

type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = ServiceName
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Get(key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (k *KeyringStore) Set(key, value string) error {
	return keyring.Set(k.service, key, value)
}

func (k *KeyringStore) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
