package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/dbx"
	"github.com/dmitrijs2005/gemdeck/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes the blob, replacing content and metadata of an existing key.
func (r *PostgresRepository) Upsert(ctx context.Context, obj *models.Object) error {
	query := `
		INSERT INTO blobs (key, content_type, etag, size, data, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key)
		DO UPDATE SET
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			size = EXCLUDED.size,
			data = EXCLUDED.data,
			uploaded_at = EXCLUDED.uploaded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		obj.Key, obj.ContentType, obj.ETag, obj.Size, obj.Body, obj.Uploaded)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the blob stored at key or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*models.Object, error) {
	query := `SELECT key, content_type, etag, size, data, uploaded_at FROM blobs WHERE key = $1`

	obj := &models.Object{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&obj.Key, &obj.ContentType, &obj.ETag, &obj.Size, &obj.Body, &obj.Uploaded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select blob: %w", err)
	}
	return obj, nil
}

// Delete removes key. Zero affected rows is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM blobs WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// List returns metadata of blobs under prefix ordered by key.
func (r *PostgresRepository) List(ctx context.Context, prefix string, limit int) ([]models.ObjectInfo, error) {
	query := `SELECT key, content_type, etag, size, uploaded_at FROM blobs
		WHERE starts_with(key, $1)
		ORDER BY key`
	args := []any{prefix}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var result []models.ObjectInfo
	for rows.Next() {
		var item models.ObjectInfo
		if err := rows.Scan(&item.Key, &item.ContentType, &item.ETag, &item.Size, &item.Uploaded); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Ping checks that the blobs table is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM blobs LIMIT 1`).Scan(&one); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
