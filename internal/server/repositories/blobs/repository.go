// Package blobs persists object store blobs in PostgreSQL.
package blobs

import (
	"context"

	"github.com/dmitrijs2005/gemdeck/internal/server/models"
)

// Repository is the table-level contract behind storage.PostgresStore.
type Repository interface {
	Upsert(ctx context.Context, obj *models.Object) error
	Get(ctx context.Context, key string) (*models.Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, limit int) ([]models.ObjectInfo, error)
	Ping(ctx context.Context) error
}
