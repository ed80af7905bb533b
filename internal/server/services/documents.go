package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/cryptox"
	"github.com/dmitrijs2005/gemdeck/internal/htmlscan"
	"github.com/dmitrijs2005/gemdeck/internal/keyspace"
	"github.com/dmitrijs2005/gemdeck/internal/logging"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/dmitrijs2005/gemdeck/internal/server/metrics"
	"github.com/dmitrijs2005/gemdeck/internal/server/models"
	"github.com/dmitrijs2005/gemdeck/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

const (
	htmlContentType    = "text/html; charset=utf-8"
	defaultContentType = "application/octet-stream"

	// fanOut bounds concurrent storage calls within one request.
	fanOut = 8
)

// DocumentService runs the document lifecycle: ingest, fetch, rename,
// content edit and cascading delete. It holds no per-request state.
type DocumentService struct {
	store       storage.ObjectStore
	key         *cryptox.PathKey
	logger      logging.Logger
	metrics     metrics.Recorder
	publicLinks bool
}

// NewDocumentService wires the service. key is derived once from the
// encryption secret by the caller. With publicLinks set, Fetch serves any
// valid token without a session.
func NewDocumentService(store storage.ObjectStore, key *cryptox.PathKey, l logging.Logger, m metrics.Recorder, publicLinks bool) *DocumentService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &DocumentService{
		store:       store,
		key:         key,
		logger:      l.With("module", "documents"),
		metrics:     m,
		publicLinks: publicLinks,
	}
}

// FileURL returns the opaque file route for a storage key.
func (s *DocumentService) FileURL(key string) (string, error) {
	token, err := s.key.Encrypt(key)
	if err != nil {
		return "", err
	}
	return common.FileRoutePrefix + token, nil
}

// Ingest stores an HTML document and the uploaded images it references.
// Images whose file name the HTML does not mention are dropped. Referenced
// images get fresh keys and their <img src> is rewritten to opaque file
// URLs. The document overwrites any existing one of the same name.
//
// Images already written stay in place if the final document write fails.
func (s *DocumentService) Ingest(ctx context.Context, p auth.Principal, doc models.Upload, images []models.Upload) (*models.IngestResult, error) {
	if p.Email == "" {
		return nil, common.ErrorUnauthorized
	}
	if doc.Name == "" || doc.Data == nil {
		return nil, fmt.Errorf("%w: missing html file", common.ErrorBadInput)
	}

	docKey, err := keyspace.DocumentKey(p.Email, doc.Name)
	if err != nil {
		return nil, err
	}

	referenced, err := htmlscan.LocalImageFilenames(string(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorBadInput, err)
	}

	type pending struct {
		name string
		key  string
		img  models.Upload
	}

	var todo []pending
	taken := make(map[string]struct{})
	for _, img := range images {
		name := keyspace.LocalName(img.Name)
		if _, ok := referenced[name]; !ok {
			s.logger.Debug(ctx, "skipping unreferenced image", "name", name)
			continue
		}
		if _, dup := taken[name]; dup {
			s.logger.Debug(ctx, "skipping duplicate image", "name", name)
			continue
		}
		taken[name] = struct{}{}
		todo = append(todo, pending{name: name, key: keyspace.NewImageKey(p.Email, name), img: img})
	}

	var mu sync.Mutex
	mapping := make(map[string]string, len(todo))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for _, it := range todo {
		it := it
		g.Go(func() error {
			ct := it.img.ContentType
			if ct == "" {
				ct = defaultContentType
			}
			if err := s.store.Put(gctx, it.key, it.img.Data, ct); err != nil {
				return fmt.Errorf("store image %s: %w", it.name, err)
			}
			s.metrics.ObjectStored(keyspace.KindImage, len(it.img.Data))

			url, err := s.FileURL(it.key)
			if err != nil {
				return err
			}
			mu.Lock()
			mapping[it.name] = url
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	body := doc.Data
	if len(mapping) > 0 {
		rewritten, err := htmlscan.RewriteImageReferences(string(doc.Data), mapping)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorBadInput, err)
		}
		body = []byte(rewritten)
	}

	if err := s.store.Put(ctx, docKey, body, htmlContentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	s.metrics.ObjectStored(keyspace.KindDocs, len(body))

	s.logger.Info(ctx, "document stored", "key", docKey, "images", len(mapping))
	return &models.IngestResult{Key: docKey, UploadedImages: len(mapping)}, nil
}

// Fetch resolves an opaque token and returns the object it names. Tokens
// that do not decrypt are rejected; they are never used as literal keys.
// p is nil for anonymous callers.
//
// Image tokens are capabilities and need no session: a served document is
// sandboxed into an opaque origin, so browsers drop the Lax session cookie
// on its <img> requests. Document tokens need the owner or the admin unless
// public links are enabled.
func (s *DocumentService) Fetch(ctx context.Context, p *auth.Principal, token string) (*models.Object, error) {
	key, ok := s.key.Decrypt(token)
	if !ok {
		return nil, common.ErrInvalidToken
	}

	owner, ok := keyspace.OwnerOf(key)
	if !ok || !keyspace.IsOwnedBy(key, owner) {
		return nil, common.ErrInvalidToken
	}

	if !s.publicLinks && !keyspace.IsImageKey(key) {
		if p == nil {
			return nil, common.ErrorUnauthorized
		}
		if !p.CanAccess(owner) {
			return nil, common.ErrorForbidden
		}
	}

	return s.store.Get(ctx, key)
}

// Rename moves docs/<caller>/<oldName> to docs/<caller>/<newName>. The new
// copy is written before the old key is removed. Images are left alone
// since the document content, and the tokens in it, do not change.
func (s *DocumentService) Rename(ctx context.Context, p auth.Principal, oldName, newName string) (string, error) {
	if p.Email == "" {
		return "", common.ErrorUnauthorized
	}
	if newName == "" {
		return "", fmt.Errorf("%w: missing name", common.ErrorBadInput)
	}

	oldKey, err := keyspace.DocumentKey(p.Email, oldName)
	if err != nil {
		return "", err
	}
	newKey, err := keyspace.DocumentKey(p.Email, newName)
	if err != nil {
		return "", err
	}
	if oldKey == newKey {
		return newKey, nil
	}

	obj, err := s.store.Get(ctx, oldKey)
	if err != nil {
		return "", err
	}

	ct := obj.ContentType
	if ct == "" {
		ct = htmlContentType
	}
	if err := s.store.Put(ctx, newKey, obj.Body, ct); err != nil {
		return "", fmt.Errorf("store renamed document: %w", err)
	}
	if err := s.store.Delete(ctx, oldKey); err != nil {
		return "", fmt.Errorf("delete old document: %w", err)
	}

	s.logger.Info(ctx, "document renamed", "from", oldKey, "to", newKey)
	return newKey, nil
}

// Delete removes the caller's document named name together with its images.
func (s *DocumentService) Delete(ctx context.Context, p auth.Principal, name string) error {
	if p.Email == "" {
		return common.ErrorUnauthorized
	}
	key, err := keyspace.DocumentKey(p.Email, name)
	if err != nil {
		return err
	}
	return s.cascade(ctx, key, p.Email)
}

// DeleteKey removes an object by full key. Documents cascade to their
// images; image keys are deleted alone. The caller must own the key or be
// the administrator.
func (s *DocumentService) DeleteKey(ctx context.Context, p auth.Principal, key string) error {
	if p.Email == "" {
		return common.ErrorUnauthorized
	}
	owner, ok := keyspace.OwnerOf(key)
	if !ok || !keyspace.IsOwnedBy(key, owner) {
		return fmt.Errorf("%w: invalid key", common.ErrorBadInput)
	}
	if !p.CanAccess(owner) {
		return common.ErrorForbidden
	}

	if keyspace.IsImageKey(key) {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
		s.logger.Info(ctx, "image deleted", "key", key, "by", p.Email)
		return nil
	}

	if _, err := keyspace.ParseDocumentKey(key); err != nil {
		return err
	}
	return s.cascade(ctx, key, owner)
}

// cascade deletes the images referenced by the document at key that belong
// to owner, then the document itself. Image failures are logged and do not
// stop the document delete. A missing document is not an error.
func (s *DocumentService) cascade(ctx context.Context, key, owner string) error {
	images := s.referencedImages(ctx, key, owner)

	var removed atomic.Int64
	var g errgroup.Group
	g.SetLimit(fanOut)
	for _, img := range images {
		img := img
		g.Go(func() error {
			if err := s.store.Delete(ctx, img); err != nil {
				s.logger.Warn(ctx, "image delete failed", "key", img, "error", err)
				return nil
			}
			removed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	s.metrics.ImagesCascaded(int(removed.Load()))

	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.Info(ctx, "document deleted", "key", key, "images", removed.Load())
	return nil
}

func (s *DocumentService) referencedImages(ctx context.Context, key, owner string) []string {
	obj, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn(ctx, "document read failed, skipping image cleanup", "key", key, "error", err)
		}
		return nil
	}

	images, err := htmlscan.ReferencedStorageKeys(string(obj.Body), owner, s.key)
	if err != nil {
		s.logger.Warn(ctx, "document scan failed, skipping image cleanup", "key", key, "error", err)
		return nil
	}
	return images
}

// List returns the caller's documents. Administrators passing scopeAll see
// every owner's documents. Each entry carries a fresh opaque URL.
func (s *DocumentService) List(ctx context.Context, p auth.Principal, scopeAll bool) ([]models.DocumentEntry, error) {
	if p.Email == "" {
		return nil, common.ErrorUnauthorized
	}

	items, err := s.store.List(ctx, keyspace.ListPrefix(p.Email, scopeAll, p.IsAdmin), 0)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	entries := make([]models.DocumentEntry, 0, len(items))
	for _, it := range items {
		url, err := s.FileURL(it.Key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.DocumentEntry{
			Key:         it.Key,
			Name:        it.Key,
			DisplayName: keyspace.LocalName(it.Key),
			URL:         url,
			Size:        it.Size,
			Uploaded:    it.Uploaded,
		})
	}
	return entries, nil
}

func (s *DocumentService) authorizeDocument(p auth.Principal, key string) error {
	if p.Email == "" {
		return common.ErrorUnauthorized
	}
	owner, err := keyspace.ParseDocumentKey(key)
	if err != nil {
		return err
	}
	if !p.CanAccess(owner) {
		return common.ErrorForbidden
	}
	return nil
}

// Content returns the raw HTML of the document at key.
func (s *DocumentService) Content(ctx context.Context, p auth.Principal, key string) (*models.Object, error) {
	if err := s.authorizeDocument(p, key); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, key)
}

// UpdateContent overwrites the document at key. Images that the new content
// no longer references are not removed.
func (s *DocumentService) UpdateContent(ctx context.Context, p auth.Principal, key string, content []byte) error {
	if err := s.authorizeDocument(p, key); err != nil {
		return err
	}
	if err := s.store.Put(ctx, key, content, htmlContentType); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	s.metrics.ObjectStored(keyspace.KindDocs, len(content))
	s.logger.Info(ctx, "document content updated", "key", key, "by", p.Email)
	return nil
}
