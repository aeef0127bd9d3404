package tokenstore

import (
	"fmt"

	"github.com/ecomstore/storefront/internal/config"
)

// Open builds the backend selected by cfg, scoped to namespace (the API
// base URL) so tokens never cross from one backend to another. The returned
// close function releases any handle the backend holds and is never nil.
func Open(cfg config.TokenStoreConfig, namespace string) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "keyring":
		return NewKeyringBackend(namespace), noop, nil
	case "file":
		b, err := NewFileBackend(cfg.FilePath, namespace)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case "sqlite":
		b, err := OpenSQLiteBackend(cfg.DBPath, namespace)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}
