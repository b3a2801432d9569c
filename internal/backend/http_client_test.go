package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
)

func TestHTTPClient_GetInstance(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		_ = json.NewEncoder(w).Encode(domain.Instance{Name: "instances/prod", Title: "Prod"})
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "secret", time.Second)
	ins, err := client.GetInstance(context.Background(), "instances/prod")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if ins.Title != "Prod" {
		t.Errorf("Expected title Prod, got %s", ins.Title)
	}
	if gotPath != "/v1/instances/prod" {
		t.Errorf("Expected path /v1/instances/prod, got %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("Expected X-Request-Id header")
	}
}

func TestHTTPClient_NotFoundMapsToDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"project not found"}`))
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	_, err := client.GetProject(context.Background(), "projects/missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected *HTTPError, got %T", err)
	}
	if httpErr.Message != "project not found" {
		t.Errorf("Expected message to be decoded, got %q", httpErr.Message)
	}
}

func TestHTTPClient_NoRetryOnServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	if _, err := client.ListInstances(context.Background(), false); err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 call, got %d", calls)
	}
}

func TestHTTPClient_ListTaskRunsQuery(t *testing.T) {
	var gotPath, gotPageSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPageSize = r.URL.Query().Get("pageSize")
		_, _ = w.Write([]byte(`{"taskRuns":[{"name":"r1"},{"name":"r2"}]}`))
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	runs, err := client.ListTaskRuns(context.Background(), backend.AllTaskRunsParent("projects/p1/rollouts/7"), 5000)
	if err != nil {
		t.Fatalf("ListTaskRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 task runs, got %d", len(runs))
	}
	if gotPath != "/v1/projects/p1/rollouts/7/stages/-/tasks/-/taskRuns" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotPageSize != "1000" {
		t.Errorf("Expected page size clamped to 1000, got %s", gotPageSize)
	}
}

func TestHTTPClient_BatchSyncBody(t *testing.T) {
	var body struct {
		Requests []struct {
			Name string `json:"name"`
		} `json:"requests"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/instances:batchSync" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	if err := client.BatchSyncInstances(context.Background(), []string{"instances/a", "instances/b"}); err != nil {
		t.Fatalf("BatchSyncInstances failed: %v", err)
	}
	if len(body.Requests) != 2 || body.Requests[1].Name != "instances/b" {
		t.Errorf("Unexpected request body %+v", body)
	}
}

func TestHTTPClient_UndeleteEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/instances/a:undelete" {
			t.Errorf("Expected undelete path, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "secret", time.Second)
	ins, err := client.UndeleteInstance(context.Background(), "instances/a")
	if err != nil {
		t.Fatalf("UndeleteInstance failed: %v", err)
	}
	if ins != nil {
		t.Errorf("Expected no instance for an empty reply, got %+v", ins)
	}
}
