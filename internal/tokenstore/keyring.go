package tokenstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "storefront-cli"

// KeyringBackend stores tokens in the OS keychain/credential manager.
// Keys are namespaced so tokens for different backends never collide.
type KeyringBackend struct {
	namespace string
}

// NewKeyringBackend creates a keyring backend scoped to namespace (typically the API base URL)
func NewKeyringBackend(namespace string) *KeyringBackend {
	return &KeyringBackend{namespace: namespace}
}

// itemKey returns a unique keyring item name per namespace and key
func (k *KeyringBackend) itemKey(key string) string {
	return fmt.Sprintf("%s|%s", k.namespace, key)
}

func (k *KeyringBackend) Get(key string) (string, error) {
	value, err := keyring.Get(keyringService, k.itemKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, nil
}

func (k *KeyringBackend) Set(key, value string) error {
	if err := keyring.Set(keyringService, k.itemKey(key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *KeyringBackend) Delete(key string) error {
	if err := keyring.Delete(keyringService, k.itemKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
