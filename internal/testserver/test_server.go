// Package testserver runs an in-process fake of the OpenProject API v3 for
// tests. State lives in an in-memory sqlite database; work package writes
// are guarded by a real lock_version compare-and-swap.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ganot/openproject-mcp/internal/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Request is one request received by the server.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	APIKey string

	projects     *sqlite.ProjectRepository
	workPackages *sqlite.WorkPackageRepository
	timeEntries  *sqlite.TimeEntryRepository
	reference    *sqlite.ReferenceRepository

	mu           sync.Mutex
	requests     []Request
	staleParents bool
	patchHook    func()
}

// New starts a server that accepts Basic auth with user "apikey" and the
// given key as password.
func New(t *testing.T, apiKey string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	reference := sqlite.NewReferenceRepository(db)
	require.NoError(t, reference.Seed(context.Background()))

	ts := &TestServer{
		DB:           db,
		APIKey:       apiKey,
		projects:     sqlite.NewProjectRepository(db),
		workPackages: sqlite.NewWorkPackageRepository(db),
		timeEntries:  sqlite.NewTimeEntryRepository(db),
		reference:    reference,
	}
	ts.Server = httptest.NewServer(ts.routes())

	t.Cleanup(func() {
		ts.Server.Close()
		_ = db.Close()
	})

	return ts
}

// URL is the installation root, without the /api/v3 prefix.
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// SetStaleParents makes collection queries keep reporting the parent a work
// package had before its latest update, like a lagging search index.
func (ts *TestServer) SetStaleParents(stale bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.staleParents = stale
}

// BeforePatch registers fn to run after a work package PATCH was decoded
// and before it is applied.
func (ts *TestServer) BeforePatch(fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.patchHook = fn
}

// Requests returns a copy of the requests received so far.
func (ts *TestServer) Requests() []Request {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]Request(nil), ts.requests...)
}

// RequestsTo returns the received requests with the given method and path.
func (ts *TestServer) RequestsTo(method, path string) []Request {
	var matched []Request
	for _, req := range ts.Requests() {
		if req.Method == method && req.Path == path {
			matched = append(matched, req)
		}
	}
	return matched
}

// AddProject stores a project.
func (ts *TestServer) AddProject(t *testing.T, identifier, name string) *sqlite.Project {
	t.Helper()
	now := timestamp()
	p := &sqlite.Project{Identifier: identifier, Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, ts.projects.Create(context.Background(), p))
	return p
}

// AddWorkPackage stores a work package of type Task with status New.
func (ts *TestServer) AddWorkPackage(t *testing.T, projectID int, subject string, parentID *int) *sqlite.WorkPackage {
	t.Helper()
	now := timestamp()
	wp := &sqlite.WorkPackage{
		ProjectID: projectID,
		TypeID:    1,
		StatusID:  1,
		ParentID:  parentID,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, ts.workPackages.Create(context.Background(), wp))
	return wp
}

// WorkPackage reads a stored work package.
func (ts *TestServer) WorkPackage(t *testing.T, id int) *sqlite.WorkPackage {
	t.Helper()
	wp, err := ts.workPackages.Get(context.Background(), id)
	require.NoError(t, err)
	return wp
}

func (ts *TestServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(ts.recordRequest)
	r.Use(ts.basicAuth)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
	})

	r.Route("/api/v3", func(r chi.Router) {
		r.Get("/", ts.handleRoot)
		r.Get("/configuration", ts.handleConfiguration)

		r.Get("/projects", ts.listProjects)
		r.Post("/projects", ts.createProject)
		r.Get("/projects/{id}", ts.getProject)
		r.Patch("/projects/{id}", ts.updateProject)
		r.Delete("/projects/{id}", ts.deleteProject)
		r.Get("/projects/{id}/work_packages", ts.listProjectWorkPackages)
		r.Get("/projects/{id}/types", ts.listNamed("types", "Type"))

		r.Get("/work_packages", ts.listWorkPackages)
		r.Post("/work_packages", ts.createWorkPackage)
		r.Get("/work_packages/{id}", ts.getWorkPackage)
		r.Patch("/work_packages/{id}", ts.updateWorkPackage)
		r.Delete("/work_packages/{id}", ts.deleteWorkPackage)

		r.Get("/statuses", ts.listStatuses)
		r.Get("/types", ts.listNamed("types", "Type"))
		r.Get("/priorities", ts.listNamed("priorities", "Priority"))
		r.Get("/roles", ts.listNamed("roles", "Role"))
		r.Get("/roles/{id}", ts.getRole)

		r.Get("/users", ts.listUsers)
		r.Get("/users/me", ts.getCurrentUser)
		r.Get("/users/{id}", ts.getUser)

		r.Get("/time_entries", ts.listTimeEntries)
		r.Post("/time_entries", ts.createTimeEntry)
		r.Get("/time_entries/{id}", ts.getTimeEntry)
		r.Delete("/time_entries/{id}", ts.deleteTimeEntry)
	})

	return r
}

func (ts *TestServer) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(raw))
			if len(bytes.TrimSpace(raw)) > 0 {
				_ = json.Unmarshal(raw, &body)
			}
		}
		ts.mu.Lock()
		ts.requests = append(ts.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		ts.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || user != "apikey" || password != ts.APIKey {
			writeError(w, http.StatusUnauthorized, errUnauthenticated, "You did not provide the correct credentials.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"_type":        "Root",
		"instanceName": "OpenProject",
		"coreVersion":  "13.4.1",
		"_links": map[string]any{
			"self":          link("/api/v3", "OpenProject"),
			"configuration": link("/api/v3/configuration", ""),
			"user":          link("/api/v3/users/1", "OpenProject Admin"),
		},
	})
}

func (ts *TestServer) handleConfiguration(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"_type":                     "Configuration",
		"maximumAttachmentFileSize": 5242880,
		"perPageOptions":            []int{20, 100},
		"hostName":                  "localhost",
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
