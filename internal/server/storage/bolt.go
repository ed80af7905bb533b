package storage

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/filex"
	"github.com/dmitrijs2005/gemdeck/internal/server/models"
	"go.etcd.io/bbolt"
)

var bucketObjects = []byte("objects")

// boltRecord is the gob-encoded value stored per key.
type boltRecord struct {
	ContentType string
	ETag        string
	Uploaded    time.Time
	Data        []byte
}

// BoltStore keeps blobs in a single bbolt file. It suits single-node
// deployments that do not want an external object store.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ ObjectStore = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at path. The parent directory
// is created if it does not exist.
func OpenBoltStore(path string) (*BoltStore, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w", err)
	}

	db, err := bbolt.Open(abs, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", abs, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func encodeRecord(r *boltRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*boltRecord, error) {
	var r boltRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) (*models.Object, error) {
	var obj *models.Object
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketObjects).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		r, err := decodeRecord(data)
		if err != nil {
			return fmt.Errorf("bolt: decode %s: %w", key, err)
		}
		obj = &models.Object{
			ObjectInfo: models.ObjectInfo{
				Key:         key,
				Size:        int64(len(r.Data)),
				Uploaded:    r.Uploaded,
				ContentType: r.ContentType,
				ETag:        r.ETag,
			},
			Body: r.Data,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *BoltStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	value, err := encodeRecord(&boltRecord{
		ContentType: contentType,
		ETag:        ComputeETag(data),
		Uploaded:    s.now().UTC(),
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("bolt: encode %s: %w", key, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Put([]byte(key), value); err != nil {
			return fmt.Errorf("bolt: put %s: %w", key, err)
		}
		return nil
	})
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Delete([]byte(key)); err != nil {
			return fmt.Errorf("bolt: delete %s: %w", key, err)
		}
		return nil
	})
}

func (s *BoltStore) List(ctx context.Context, prefix string, limit int) ([]models.ObjectInfo, error) {
	var out []models.ObjectInfo
	p := []byte(prefix)

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketObjects).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			r, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("bolt: decode %s: %w", k, err)
			}
			out = append(out, models.ObjectInfo{
				Key:         string(k),
				Size:        int64(len(r.Data)),
				Uploaded:    r.Uploaded,
				ContentType: r.ContentType,
				ETag:        r.ETag,
			})
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
