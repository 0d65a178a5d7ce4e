package data

import (
	"database/sql"

	"github.com/consolerelay/console-relay/internal/biz/repo"
	"github.com/consolerelay/console-relay/internal/infra/dashboard"
	"github.com/consolerelay/console-relay/internal/infra/feishu"
)

// Repositories contains all repositories
type Repositories struct {
	DB       *sql.DB
	Message  repo.MessageRepo
	Origin   repo.OriginRepo
	Upstream repo.UpstreamRepo // nil unless a dashboard client is given
	Notifier repo.Notifier     // nil unless a Feishu client is given
}

// NewRepositories opens the database at dbPath and creates all repositories
func NewRepositories(dbPath string, dashboardClient *dashboard.Client, feishuClient *feishu.Client) (*Repositories, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	messageRepo, err := NewMessageRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	repos := &Repositories{
		DB:      db,
		Message: messageRepo,
		Origin:  NewOriginRepo(db),
	}
	if dashboardClient != nil {
		repos.Upstream = NewUpstreamRepo(dashboardClient)
	}
	if feishuClient != nil {
		repos.Notifier = NewFeishuNotifier(feishuClient)
	}
	return repos, nil
}

// Close releases the database
func (r *Repositories) Close() error {
	return r.DB.Close()
}
