package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkovs/taskdeck/internal/dbx"
	"github.com/avolkovs/taskdeck/internal/server/repositories/tasks"
	"github.com/avolkovs/taskdeck/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository code against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tasks(db dbx.DBTX) tasks.Repository
}
