// Package lockstore provides storage backends for lock snapshot documents.
//
// This package implements support for multiple storage protocols:
//   - file:// (or a bare path) - Local filesystem
//   - https:// - HTTP(S), fetch only
//   - s3://    - Amazon S3
//   - az://    - Azure Blob Storage
//
// A store holds named lock documents; `depfix lock --store` uploads the
// current snapshot and `depfix restore --from` fetches one before diffing.
package lockstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/depfix-tools/depfix/internal/errors"
)

// Store is the interface for lock snapshot storage backends.
type Store interface {
	// Put uploads a lock document under the given file name.
	Put(ctx context.Context, name string, data []byte) error

	// Get fetches a lock document by file name.
	Get(ctx context.Context, name string) ([]byte, error)

	// Protocol returns the protocol this store handles (e.g., "file", "s3").
	Protocol() string
}

// New creates a Store for the given URL.
// Supported protocols:
//   - file:// or a bare path - Local filesystem
//   - s3://   - Amazon S3
//   - az://   - Azure Blob Storage
//   - https:// - Fetch only (Put returns manual upload instructions)
func New(url string) (Store, error) {
	protocol, path := splitScheme(url)

	switch protocol {
	case "file":
		return NewLocalStore(path), nil
	case "s3":
		return NewS3Store(url)
	case "az":
		return NewAzureStore(url)
	case "https", "http":
		return NewHTTPSStore(url), nil
	default:
		return nil, errors.NewLockError(url, "store",
			fmt.Errorf("unsupported protocol: %s", protocol))
	}
}

// splitScheme separates a URL into scheme and remainder. A bare path is
// treated as file.
func splitScheme(url string) (scheme, rest string) {
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return "file", url
	}
	return strings.ToLower(scheme), rest
}
