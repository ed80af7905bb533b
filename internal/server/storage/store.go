// Package storage provides the key-value blob stores GemDeck keeps
// documents and images in. All backends satisfy ObjectStore and are safe
// for concurrent use.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/server/models"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = common.ErrorNotFound

// ObjectStore is a flat key-value blob store with prefix listing. There are
// no cross-key transactions.
type ObjectStore interface {
	// Get returns the blob at key or ErrNotFound.
	Get(ctx context.Context, key string) (*models.Object, error)

	// Put writes data at key, replacing any existing blob.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// List returns blobs whose key starts with prefix, ordered by key.
	// A limit <= 0 means no limit.
	List(ctx context.Context, prefix string, limit int) ([]models.ObjectInfo, error)
}

// ComputeETag returns the quoted hex SHA-256 of data.
func ComputeETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
