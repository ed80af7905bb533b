package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gemdeck/internal/dbx"
	"github.com/dmitrijs2005/gemdeck/internal/server/repositories/blobs"
)

// RepositoryManager vends repositories bound to a DBTX and owns the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Blobs(db dbx.DBTX) blobs.Repository
}
