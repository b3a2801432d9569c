package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// HTTPError is returned when the backend answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Is maps well-known statuses onto domain errors so callers can use errors.Is.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case domain.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case domain.ErrConflict:
		return e.StatusCode == http.StatusConflict
	case domain.ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// HTTPClient talks to the backend's JSON API.
// Failures are returned as-is; there is no retry at this layer.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for baseURL that authenticates with a static bearer token.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := &http.Client{Timeout: timeout}

	httpClient := base
	if token = strings.TrimSpace(token); token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		httpClient.Timeout = timeout
	}

	return &HTTPClient{baseURL: baseURL, httpClient: httpClient}
}

// ============================================
// Instances
// ============================================

func (c *HTTPClient) ListInstances(ctx context.Context, showDeleted bool) ([]*domain.Instance, error) {
	q := url.Values{}
	q.Set("showDeleted", strconv.FormatBool(showDeleted))
	var out struct {
		Instances []*domain.Instance `json:"instances"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/instances?"+q.Encode(), nil, &out)
	return out.Instances, err
}

func (c *HTTPClient) GetInstance(ctx context.Context, name string) (*domain.Instance, error) {
	var out domain.Instance
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateInstance(ctx context.Context, instance *domain.Instance, instanceID string) (*domain.Instance, error) {
	q := url.Values{}
	q.Set("instanceId", instanceID)
	var out domain.Instance
	if err := c.doJSON(ctx, http.MethodPost, "/v1/instances?"+q.Encode(), instance, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateInstance(ctx context.Context, instance *domain.Instance, updateMask []string) (*domain.Instance, error) {
	var out domain.Instance
	if err := c.doJSON(ctx, http.MethodPatch, withUpdateMask(resourcePath(instance.Name), updateMask), instance, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteInstance(ctx context.Context, name string, force bool) error {
	q := url.Values{}
	q.Set("force", strconv.FormatBool(force))
	return c.doJSON(ctx, http.MethodDelete, resourcePath(name)+"?"+q.Encode(), nil, nil)
}

func (c *HTTPClient) UndeleteInstance(ctx context.Context, name string) (*domain.Instance, error) {
	var out domain.Instance
	if err := c.doJSON(ctx, http.MethodPost, resourcePath(name)+":undelete", struct{}{}, &out); err != nil {
		return nil, err
	}
	// Some backends answer undelete with an empty body.
	if out.Name == "" {
		return nil, nil
	}
	return &out, nil
}

func (c *HTTPClient) SyncInstance(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodPost, resourcePath(name)+":sync", struct{}{}, nil)
}

func (c *HTTPClient) BatchSyncInstances(ctx context.Context, names []string) error {
	type syncRequest struct {
		Name string `json:"name"`
	}
	body := struct {
		Requests []syncRequest `json:"requests"`
	}{Requests: make([]syncRequest, 0, len(names))}
	for _, name := range names {
		body.Requests = append(body.Requests, syncRequest{Name: name})
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/instances:batchSync", body, nil)
}

func (c *HTTPClient) AddDataSource(ctx context.Context, name string, dataSource domain.DataSource) (*domain.Instance, error) {
	return c.dataSourceCall(ctx, name, ":addDataSource", dataSource, nil)
}

func (c *HTTPClient) UpdateDataSource(ctx context.Context, name string, dataSource domain.DataSource, updateMask []string) (*domain.Instance, error) {
	return c.dataSourceCall(ctx, name, ":updateDataSource", dataSource, updateMask)
}

func (c *HTTPClient) RemoveDataSource(ctx context.Context, name string, dataSource domain.DataSource) (*domain.Instance, error) {
	return c.dataSourceCall(ctx, name, ":removeDataSource", dataSource, nil)
}

func (c *HTTPClient) dataSourceCall(ctx context.Context, name, verb string, dataSource domain.DataSource, updateMask []string) (*domain.Instance, error) {
	body := struct {
		Name       string            `json:"name"`
		DataSource domain.DataSource `json:"dataSource"`
		UpdateMask []string          `json:"updateMask,omitempty"`
	}{Name: name, DataSource: dataSource, UpdateMask: updateMask}
	var out domain.Instance
	if err := c.doJSON(ctx, http.MethodPost, resourcePath(name)+verb, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================
// Environments, projects and users
// ============================================

func (c *HTTPClient) ListEnvironments(ctx context.Context, showDeleted bool) ([]*domain.Environment, error) {
	q := url.Values{}
	q.Set("showDeleted", strconv.FormatBool(showDeleted))
	var out struct {
		Environments []*domain.Environment `json:"environments"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/environments?"+q.Encode(), nil, &out)
	return out.Environments, err
}

func (c *HTTPClient) GetEnvironment(ctx context.Context, name string) (*domain.Environment, error) {
	var out domain.Environment
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListProjects(ctx context.Context, showDeleted bool) ([]*domain.Project, error) {
	q := url.Values{}
	q.Set("showDeleted", strconv.FormatBool(showDeleted))
	var out struct {
		Projects []*domain.Project `json:"projects"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/projects?"+q.Encode(), nil, &out)
	return out.Projects, err
}

func (c *HTTPClient) GetProject(ctx context.Context, name string) (*domain.Project, error) {
	var out domain.Project
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var out struct {
		Users []*domain.User `json:"users"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/users", nil, &out)
	return out.Users, err
}

func (c *HTTPClient) GetUser(ctx context.Context, name string) (*domain.User, error) {
	var out domain.User
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================
// Issues, plans and rollouts
// ============================================

func (c *HTTPClient) GetIssue(ctx context.Context, name string) (*domain.Issue, error) {
	var out domain.Issue
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateIssue(ctx context.Context, parent string, issue *domain.Issue) (*domain.Issue, error) {
	var out domain.Issue
	if err := c.doJSON(ctx, http.MethodPost, resourcePath(parent)+"/issues", issue, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetPlan(ctx context.Context, name string) (*domain.Plan, error) {
	var out domain.Plan
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreatePlan(ctx context.Context, parent string, plan *domain.Plan) (*domain.Plan, error) {
	var out domain.Plan
	if err := c.doJSON(ctx, http.MethodPost, resourcePath(parent)+"/plans", plan, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListPlanCheckRuns(ctx context.Context, parent string, latestOnly bool) ([]domain.PlanCheckRun, error) {
	q := url.Values{}
	q.Set("latestOnly", strconv.FormatBool(latestOnly))
	var out struct {
		PlanCheckRuns []domain.PlanCheckRun `json:"planCheckRuns"`
	}
	err := c.doJSON(ctx, http.MethodGet, resourcePath(parent)+"/planCheckRuns?"+q.Encode(), nil, &out)
	return out.PlanCheckRuns, err
}

func (c *HTTPClient) GetRollout(ctx context.Context, name string) (*domain.Rollout, error) {
	var out domain.Rollout
	if err := c.doJSON(ctx, http.MethodGet, resourcePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateRollout(ctx context.Context, parent string, rollout *domain.Rollout) (*domain.Rollout, error) {
	var out domain.Rollout
	if err := c.doJSON(ctx, http.MethodPost, resourcePath(parent)+"/rollouts", rollout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListTaskRuns(ctx context.Context, parent string, pageSize int) ([]domain.TaskRun, error) {
	if pageSize <= 0 || pageSize > MaxTaskRunPageSize {
		pageSize = MaxTaskRunPageSize
	}
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	var out struct {
		TaskRuns []domain.TaskRun `json:"taskRuns"`
	}
	err := c.doJSON(ctx, http.MethodGet, resourcePath(parent)+"/taskRuns?"+q.Encode(), nil, &out)
	return out.TaskRuns, err
}

// doJSON sends a single request and decodes a 2xx body into out.
func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Code:       errPayload.Code,
			Message:    errPayload.Message,
		}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// resourcePath maps a resource name such as "projects/p1/issues/3" to its URL path.
func resourcePath(name string) string {
	segments := strings.Split(strings.Trim(name, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/v1/" + strings.Join(segments, "/")
}

func withUpdateMask(path string, updateMask []string) string {
	if len(updateMask) == 0 {
		return path
	}
	q := url.Values{}
	q.Set("updateMask", strings.Join(updateMask, ","))
	return path + "?" + q.Encode()
}
