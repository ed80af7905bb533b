package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/server/models"
	"github.com/dmitrijs2005/gemdeck/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/gemdeck/internal/server/repositories/repomanager"
)

var sqlOpen = sql.Open

// PostgresStore keeps blobs in the blobs table. It is meant for small
// deployments that already run PostgreSQL.
type PostgresStore struct {
	db   *sql.DB
	repo blobs.Repository
	now  func() time.Time
}

var _ ObjectStore = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing repository. The caller owns the
// connection.
func NewPostgresStore(repo blobs.Repository) *PostgresStore {
	return &PostgresStore{repo: repo, now: time.Now}
}

// OpenPostgresStore connects with the pgx driver, checks the connection and
// brings the schema up to date.
func OpenPostgresStore(ctx context.Context, dsn string, m repomanager.RepositoryManager) (*PostgresStore, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	s := NewPostgresStore(m.Blobs(db))
	s.db = db
	return s, nil
}

// Close releases the connection pool when the store opened it.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*models.Object, error) {
	return s.repo.Get(ctx, key)
}

func (s *PostgresStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.repo.Upsert(ctx, &models.Object{
		ObjectInfo: models.ObjectInfo{
			Key:         key,
			Size:        int64(len(data)),
			Uploaded:    s.now().UTC(),
			ContentType: contentType,
			ETag:        ComputeETag(data),
		},
		Body: data,
	})
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

func (s *PostgresStore) List(ctx context.Context, prefix string, limit int) ([]models.ObjectInfo, error) {
	return s.repo.List(ctx, prefix, limit)
}
