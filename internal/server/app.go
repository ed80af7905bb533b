// Package server initializes and runs the GemDeck server.
// It selects the storage backend, derives the path key, wires the services
// and runs the HTTP API and gRPC health servers until shutdown.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gemdeck/internal/cryptox"
	"github.com/dmitrijs2005/gemdeck/internal/logging"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/dmitrijs2005/gemdeck/internal/server/config"
	"github.com/dmitrijs2005/gemdeck/internal/server/httpapi"
	"github.com/dmitrijs2005/gemdeck/internal/server/metrics"
	"github.com/dmitrijs2005/gemdeck/internal/server/oauth"
	"github.com/dmitrijs2005/gemdeck/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gemdeck/internal/server/services"
	"github.com/dmitrijs2005/gemdeck/internal/server/storage"
	"github.com/dmitrijs2005/gemdeck/internal/server/turnstile"

	gs "github.com/dmitrijs2005/gemdeck/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   storage.ObjectStore
	metrics *metrics.Metrics
	docs    *services.DocumentService
	system  *services.SystemService
}

// openStore picks the object store named by the config. The returned store
// may also implement io.Closer.
var openStore = func(ctx context.Context, c *config.Config) (storage.ObjectStore, error) {
	switch c.StorageBackend {
	case config.BackendS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			User:     c.S3User,
			Password: c.S3Password,
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3Endpoint,
		})
	case config.BackendPostgres:
		return storage.OpenPostgresStore(ctx, c.DatabaseDSN, repomanager.NewPostgresRepositoryManager())
	case config.BackendBolt:
		return storage.OpenBoltStore(c.BoltPath)
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// derived once, shared by every request
	key, err := cryptox.DeriveKey(c.EncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("derive path key: %w", err)
	}

	store, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	m := metrics.New()
	docs := services.NewDocumentService(store, key, logger, m, c.PublicFileLinks)
	system := services.NewSystemService(store, c.StorageBackend, c.GoogleConfigured(), logger)

	return &App{config: c, logger: logger, store: store, metrics: m, docs: docs, system: system}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) httpServer() *httpapi.Server {
	var verifier turnstile.Verifier = turnstile.Noop{}
	if app.config.TurnstileEnabled {
		verifier = turnstile.NewClient(app.config.TurnstileSecret)
	}

	var provider oauth.Provider
	if app.config.GoogleConfigured() {
		provider = oauth.NewGoogle(app.config.GoogleClientID, app.config.GoogleClientSecret, app.config.GoogleRedirectURL)
	}

	opts := httpapi.Options{
		SessionSecret:  []byte(app.config.SessionSecret),
		SessionTTL:     app.config.SessionTTL,
		LegacySessions: app.config.LegacySessions,
		CookieSecure:   app.config.CookieSecure,
		MaxUploadBytes: app.config.MaxUploadBytes,
		Policy:         auth.Policy{AdminEmail: app.config.AdminEmail},
	}
	return httpapi.NewServer(app.config.HTTPAddr, opts, app.docs, app.system, verifier, provider, app.metrics, app.logger)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.GRPCAddr, app.system, app.config.HealthInterval, app.metrics, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "storage close failed", "error", err)
	}
}

// Close releases the object store if it holds resources.
func (app *App) Close() error {
	if c, ok := app.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
