package repomanager

import (
	"context"
	"database/sql"

	"github.com/voltio/takeoff-server/internal/dbx"
	"github.com/voltio/takeoff-server/internal/server/repositories/pdfs"
	"github.com/voltio/takeoff-server/internal/server/repositories/projects"
	"github.com/voltio/takeoff-server/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Projects(db dbx.DBTX) projects.Repository
	Pdfs(db dbx.DBTX) pdfs.Repository
}
