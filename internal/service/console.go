// Package service assembles the console state shared by every request.
package service

import (
	"log"
	"time"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/filter"
	"github.com/bcnelson/console-cache/internal/issue"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/recent"
	"github.com/bcnelson/console-cache/internal/storage"
	"github.com/bcnelson/console-cache/internal/store"
)

// Console holds the entity stores and derived state of one console process.
type Console struct {
	Environments *store.EnvironmentStore
	Instances    *store.InstanceStore
	Projects     *store.ProjectStore
	Users        *store.UserStore

	Issues         *issue.Composer
	PlanRefresher  *issue.PlanListRefresher
	RecentProjects *recent.Projects
	Filter         *filter.Context
	InstanceSync   *InstanceSyncService
	Oracle         permission.Oracle
}

// Options configures NewConsole.
type Options struct {
	Client       backend.Client
	KV           storage.Storage
	Oracle       permission.Oracle
	Filter       *filter.Context
	SyncDebounce time.Duration
	Logger       *log.Logger
}

// NewConsole wires every store to opts.Client.
func NewConsole(opts Options) *Console {
	if opts.Oracle == nil {
		opts.Oracle = permission.NewChecker(nil)
	}
	if opts.Filter == nil {
		opts.Filter = filter.New(nil, opts.Logger)
	}

	environments := store.NewEnvironmentStore(opts.Client)
	projects := store.NewProjectStore(opts.Client)
	users := store.NewUserStore(opts.Client)

	return &Console{
		Environments:   environments,
		Instances:      store.NewInstanceStore(opts.Client, environments, opts.Logger),
		Projects:       projects,
		Users:          users,
		Issues:         issue.NewComposer(projects, users, opts.Client, opts.Client, opts.Client, opts.Oracle, opts.Logger),
		PlanRefresher:  issue.NewPlanListRefresher(),
		RecentProjects: recent.NewProjects(opts.KV, projects, opts.Oracle),
		Filter:         opts.Filter,
		InstanceSync:   NewInstanceSyncService(opts.Client, opts.SyncDebounce, opts.Logger),
		Oracle:         opts.Oracle,
	}
}

// Reset clears every entity store, e.g. when the session changes.
// Persisted recency lists and the view filter are kept.
func (c *Console) Reset() {
	c.Environments.Reset()
	c.Instances.Reset()
	c.Projects.Reset()
	c.Users.Reset()
}
