package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/logging"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/dmitrijs2005/gemdeck/internal/server/models"
	"github.com/dmitrijs2005/gemdeck/internal/server/storage"
	"github.com/mackerelio/go-osstat/memory"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// memoryWarnRatio is the used/total share above which the status reports a
// memory warning.
const memoryWarnRatio = 0.9

var memoryGet = memory.Get

// SystemService reports the health of the server's dependencies.
type SystemService struct {
	store   storage.ObjectStore
	backend string
	google  bool
	logger  logging.Logger
	printer *message.Printer
}

func NewSystemService(store storage.ObjectStore, backend string, googleConfigured bool, l logging.Logger) *SystemService {
	return &SystemService{
		store:   store,
		backend: backend,
		google:  googleConfigured,
		logger:  l.With("module", "system"),
		printer: message.NewPrinter(language.English),
	}
}

// Probe checks that the object store answers a one-item listing.
func (s *SystemService) Probe(ctx context.Context) error {
	if _, err := s.store.List(ctx, "", 1); err != nil {
		return fmt.Errorf("storage probe: %w", err)
	}
	return nil
}

// Status is the administrator's overview. Other callers are refused.
func (s *SystemService) Status(ctx context.Context, p auth.Principal) (*models.SystemStatus, error) {
	if p.Email == "" {
		return nil, common.ErrorUnauthorized
	}
	if !p.IsAdmin {
		return nil, common.ErrorForbidden
	}

	st := &models.SystemStatus{
		Google:  s.google,
		Server:  true,
		Backend: s.backend,
	}

	if err := s.Probe(ctx); err != nil {
		s.logger.Warn(ctx, "storage unreachable", "error", err)
	} else {
		st.Storage = true
	}

	if mem, err := memoryGet(); err == nil {
		st.MemTotal = mem.Total
		st.MemUsed = mem.Used
		if mem.Total > 0 && float64(mem.Used)/float64(mem.Total) > memoryWarnRatio {
			st.MemWarning = s.printer.Sprintf("memory usage high: %d of %d MB used",
				mem.Used/(1024*1024), mem.Total/(1024*1024))
		}
	} else {
		s.logger.Debug(ctx, "memory stats unavailable", "error", err)
	}

	return st, nil
}
