package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/google/uuid"
)

// Fixture is the on-disk layout read by FileShim.
type Fixture struct {
	Instances     []*domain.Instance               `json:"instances,omitempty"`
	Environments  []*domain.Environment            `json:"environments,omitempty"`
	Projects      []*domain.Project                `json:"projects,omitempty"`
	Users         []*domain.User                   `json:"users,omitempty"`
	Issues        []*domain.Issue                  `json:"issues,omitempty"`
	Plans         []*domain.Plan                   `json:"plans,omitempty"`
	Rollouts      []*domain.Rollout                `json:"rollouts,omitempty"`
	PlanCheckRuns map[string][]domain.PlanCheckRun `json:"planCheckRuns,omitempty"` // key: plan name
	TaskRuns      map[string][]domain.TaskRun      `json:"taskRuns,omitempty"`      // key: rollout name
}

// FileShim is a local implementation of the backend API backed by a JSON fixture.
// Mutations are written back to the file when a path is set.
type FileShim struct {
	filePath string

	mu       sync.Mutex
	data     Fixture
	seq      int
	calls    map[string]int
	failures map[string]error
}

// Ensure FileShim implements Client.
var _ Client = (*FileShim)(nil)

// NewFileShim loads the fixture at filePath. A missing file yields an empty backend.
func NewFileShim(filePath string) (*FileShim, error) {
	s := NewShim(Fixture{})
	s.filePath = filePath

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return nil, fmt.Errorf("parsing fixture file: %w", err)
	}
	s.normalize()
	return s, nil
}

// NewShim creates an in-memory shim seeded with fixture.
func NewShim(fixture Fixture) *FileShim {
	s := &FileShim{
		data:     fixture,
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
	s.normalize()
	return s
}

func (s *FileShim) normalize() {
	if s.data.PlanCheckRuns == nil {
		s.data.PlanCheckRuns = make(map[string][]domain.PlanCheckRun)
	}
	if s.data.TaskRuns == nil {
		s.data.TaskRuns = make(map[string][]domain.TaskRun)
	}
	s.seq = len(s.data.Issues) + len(s.data.Plans) + len(s.data.Rollouts) + 100
}

// Calls returns how many times method has been invoked.
func (s *FileShim) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Fail makes every later call to method return err. A nil err clears the failure.
func (s *FileShim) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// enter records a call and returns the injected failure, if any. Caller holds s.mu.
func (s *FileShim) enter(method string) error {
	s.calls[method]++
	return s.failures[method]
}

func (s *FileShim) nextID() string {
	s.seq++
	return fmt.Sprint(s.seq)
}

// persist writes the fixture back to disk. Caller holds s.mu.
func (s *FileShim) persist() error {
	if s.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling fixture: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("writing fixture file: %w", err)
	}
	log.Printf("[FileShim] Fixture written to %s", s.filePath)
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("%s: %w", name, domain.ErrNotFound)
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// ============================================
// Instances
// ============================================

func (s *FileShim) ListInstances(ctx context.Context, showDeleted bool) ([]*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListInstances"); err != nil {
		return nil, err
	}
	var out []*domain.Instance
	for _, ins := range s.data.Instances {
		if !showDeleted && ins.State == domain.StateDeleted {
			continue
		}
		out = append(out, clone(ins))
	}
	return out, nil
}

func (s *FileShim) findInstance(name string) *domain.Instance {
	for _, ins := range s.data.Instances {
		if ins.Name == name {
			return ins
		}
	}
	return nil
}

func (s *FileShim) GetInstance(ctx context.Context, name string) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetInstance"); err != nil {
		return nil, err
	}
	ins := s.findInstance(name)
	if ins == nil {
		return nil, notFound(name)
	}
	return clone(ins), nil
}

func (s *FileShim) CreateInstance(ctx context.Context, instance *domain.Instance, instanceID string) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateInstance"); err != nil {
		return nil, err
	}
	name := "instances/" + instanceID
	if s.findInstance(name) != nil {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrAlreadyExists)
	}
	created := clone(instance)
	created.Name = name
	created.UID = uuid.New().String()
	created.State = domain.StateActive
	s.data.Instances = append(s.data.Instances, created)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(created), nil
}

func (s *FileShim) UpdateInstance(ctx context.Context, instance *domain.Instance, updateMask []string) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateInstance"); err != nil {
		return nil, err
	}
	ins := s.findInstance(instance.Name)
	if ins == nil {
		return nil, notFound(instance.Name)
	}
	for _, field := range updateMask {
		switch field {
		case "title":
			ins.Title = instance.Title
		case "environment":
			ins.Environment = instance.Environment
		case "activation":
			ins.Activation = instance.Activation
		case "external_link":
			ins.ExternalURL = instance.ExternalURL
		case "data_sources":
			ins.DataSources = instance.DataSources
		default:
			return nil, fmt.Errorf("unsupported update mask %q: %w", field, domain.ErrInvalidInput)
		}
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(ins), nil
}

func (s *FileShim) setInstanceState(method, name string, state domain.State) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(method); err != nil {
		return nil, err
	}
	ins := s.findInstance(name)
	if ins == nil {
		return nil, notFound(name)
	}
	ins.State = state
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(ins), nil
}

func (s *FileShim) DeleteInstance(ctx context.Context, name string, force bool) error {
	_, err := s.setInstanceState("DeleteInstance", name, domain.StateDeleted)
	return err
}

func (s *FileShim) UndeleteInstance(ctx context.Context, name string) (*domain.Instance, error) {
	return s.setInstanceState("UndeleteInstance", name, domain.StateActive)
}

func (s *FileShim) SyncInstance(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SyncInstance"); err != nil {
		return err
	}
	if s.findInstance(name) == nil {
		return notFound(name)
	}
	return nil
}

func (s *FileShim) BatchSyncInstances(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("BatchSyncInstances"); err != nil {
		return err
	}
	for _, name := range names {
		if s.findInstance(name) == nil {
			return notFound(name)
		}
	}
	return nil
}

func (s *FileShim) mutateDataSources(method, name string, fn func(ins *domain.Instance) error) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(method); err != nil {
		return nil, err
	}
	ins := s.findInstance(name)
	if ins == nil {
		return nil, notFound(name)
	}
	if err := fn(ins); err != nil {
		return nil, err
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(ins), nil
}

func (s *FileShim) AddDataSource(ctx context.Context, name string, dataSource domain.DataSource) (*domain.Instance, error) {
	return s.mutateDataSources("AddDataSource", name, func(ins *domain.Instance) error {
		for _, ds := range ins.DataSources {
			if ds.ID == dataSource.ID {
				return fmt.Errorf("data source %s: %w", ds.ID, domain.ErrAlreadyExists)
			}
		}
		added := make([]domain.DataSource, 0, len(ins.DataSources)+1)
		added = append(added, ins.DataSources...)
		ins.DataSources = append(added, dataSource)
		return nil
	})
}

func (s *FileShim) UpdateDataSource(ctx context.Context, name string, dataSource domain.DataSource, updateMask []string) (*domain.Instance, error) {
	return s.mutateDataSources("UpdateDataSource", name, func(ins *domain.Instance) error {
		for i := range ins.DataSources {
			if ins.DataSources[i].ID == dataSource.ID {
				updated := append([]domain.DataSource(nil), ins.DataSources...)
				updated[i] = dataSource
				ins.DataSources = updated
				return nil
			}
		}
		return notFound("data source " + dataSource.ID)
	})
}

func (s *FileShim) RemoveDataSource(ctx context.Context, name string, dataSource domain.DataSource) (*domain.Instance, error) {
	return s.mutateDataSources("RemoveDataSource", name, func(ins *domain.Instance) error {
		for i := range ins.DataSources {
			if ins.DataSources[i].ID == dataSource.ID {
				remaining := make([]domain.DataSource, 0, len(ins.DataSources)-1)
				remaining = append(remaining, ins.DataSources[:i]...)
				ins.DataSources = append(remaining, ins.DataSources[i+1:]...)
				return nil
			}
		}
		return notFound("data source " + dataSource.ID)
	})
}

// ============================================
// Environments, projects and users
// ============================================

func (s *FileShim) ListEnvironments(ctx context.Context, showDeleted bool) ([]*domain.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListEnvironments"); err != nil {
		return nil, err
	}
	var out []*domain.Environment
	for _, env := range s.data.Environments {
		if !showDeleted && env.State == domain.StateDeleted {
			continue
		}
		out = append(out, clone(env))
	}
	return out, nil
}

func (s *FileShim) GetEnvironment(ctx context.Context, name string) (*domain.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetEnvironment"); err != nil {
		return nil, err
	}
	for _, env := range s.data.Environments {
		if env.Name == name {
			return clone(env), nil
		}
	}
	return nil, notFound(name)
}

func (s *FileShim) ListProjects(ctx context.Context, showDeleted bool) ([]*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListProjects"); err != nil {
		return nil, err
	}
	var out []*domain.Project
	for _, p := range s.data.Projects {
		if !showDeleted && p.State == domain.StateDeleted {
			continue
		}
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *FileShim) GetProject(ctx context.Context, name string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetProject"); err != nil {
		return nil, err
	}
	for _, p := range s.data.Projects {
		if p.Name == name {
			return clone(p), nil
		}
	}
	return nil, notFound(name)
}

func (s *FileShim) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListUsers"); err != nil {
		return nil, err
	}
	out := make([]*domain.User, 0, len(s.data.Users))
	for _, u := range s.data.Users {
		out = append(out, clone(u))
	}
	return out, nil
}

func (s *FileShim) GetUser(ctx context.Context, name string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUser"); err != nil {
		return nil, err
	}
	for _, u := range s.data.Users {
		if u.Name == name {
			return clone(u), nil
		}
	}
	return nil, notFound(name)
}

// ============================================
// Issues, plans and rollouts
// ============================================

func (s *FileShim) GetIssue(ctx context.Context, name string) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetIssue"); err != nil {
		return nil, err
	}
	// "projects/-/issues/{uid}" matches the issue in any project.
	anyProject := domain.ExtractProjectResourceName(name) == "-"
	uid := domain.ExtractIssueUID(name)
	for _, issue := range s.data.Issues {
		if issue.Name == name || (anyProject && domain.ExtractIssueUID(issue.Name) == uid) {
			return clone(issue), nil
		}
	}
	return nil, notFound(name)
}

func (s *FileShim) CreateIssue(ctx context.Context, parent string, issue *domain.Issue) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateIssue"); err != nil {
		return nil, err
	}
	created := clone(issue)
	created.UID = s.nextID()
	created.Name = parent + "/issues/" + created.UID
	if created.Status == "" {
		created.Status = domain.IssueStatusOpen
	}
	now := time.Now()
	created.CreateTime = now
	created.UpdateTime = now
	s.data.Issues = append(s.data.Issues, created)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(created), nil
}

func (s *FileShim) GetPlan(ctx context.Context, name string) (*domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetPlan"); err != nil {
		return nil, err
	}
	for _, p := range s.data.Plans {
		if p.Name == name {
			return clone(p), nil
		}
	}
	return nil, notFound(name)
}

func (s *FileShim) CreatePlan(ctx context.Context, parent string, plan *domain.Plan) (*domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreatePlan"); err != nil {
		return nil, err
	}
	created := clone(plan)
	created.UID = s.nextID()
	created.Name = parent + "/plans/" + created.UID
	s.data.Plans = append(s.data.Plans, created)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(created), nil
}

func (s *FileShim) ListPlanCheckRuns(ctx context.Context, parent string, latestOnly bool) ([]domain.PlanCheckRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListPlanCheckRuns"); err != nil {
		return nil, err
	}
	runs := append([]domain.PlanCheckRun(nil), s.data.PlanCheckRuns[parent]...)
	if !latestOnly {
		return runs, nil
	}
	// Keep the newest run per (type, target).
	latest := make(map[string]domain.PlanCheckRun)
	for _, run := range runs {
		key := run.Type + "|" + run.Target
		if cur, ok := latest[key]; !ok || run.CreateTime.After(cur.CreateTime) {
			latest[key] = run
		}
	}
	out := make([]domain.PlanCheckRun, 0, len(latest))
	for _, run := range latest {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FileShim) GetRollout(ctx context.Context, name string) (*domain.Rollout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetRollout"); err != nil {
		return nil, err
	}
	for _, r := range s.data.Rollouts {
		if r.Name == name {
			return clone(r), nil
		}
	}
	return nil, notFound(name)
}

func (s *FileShim) CreateRollout(ctx context.Context, parent string, rollout *domain.Rollout) (*domain.Rollout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateRollout"); err != nil {
		return nil, err
	}
	created := clone(rollout)
	created.UID = s.nextID()
	created.Name = parent + "/rollouts/" + created.UID
	s.data.Rollouts = append(s.data.Rollouts, created)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(created), nil
}

func (s *FileShim) ListTaskRuns(ctx context.Context, parent string, pageSize int) ([]domain.TaskRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListTaskRuns"); err != nil {
		return nil, err
	}
	rollout := strings.TrimSuffix(parent, "/stages/-/tasks/-")
	runs := append([]domain.TaskRun(nil), s.data.TaskRuns[rollout]...)
	if pageSize <= 0 || pageSize > MaxTaskRunPageSize {
		pageSize = MaxTaskRunPageSize
	}
	if len(runs) > pageSize {
		runs = runs[:pageSize]
	}
	return runs, nil
}
