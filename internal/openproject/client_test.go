package openproject

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Username string
	Password string
	Header   http.Header
	Body     map[string]any
}

// recorder captures every request a test server receives.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) record(t *testing.T, req *http.Request) recordedRequest {
	t.Helper()
	user, pass, _ := req.BasicAuth()
	rec := recordedRequest{
		Method:   req.Method,
		Path:     req.URL.Path,
		RawQuery: req.URL.RawQuery,
		Username: user,
		Password: pass,
		Header:   req.Header.Clone(),
	}
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &rec.Body))
	}
	r.mu.Lock()
	r.requests = append(r.requests, rec)
	r.mu.Unlock()
	return rec
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/hal+json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not a url", APIKey: "k"})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "https://op.example.com"})
	require.EqualError(t, err, "openproject: no credentials configured (set APIKey or Username and Password)")

	_, err = NewClient(Config{BaseURL: "https://op.example.com", Username: "alice"})
	require.Error(t, err)

	client, err := NewClient(Config{BaseURL: "https://op.example.com/", Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "https://op.example.com", client.BaseURL())
	require.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestClient_AuthAndHeaders(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusOK, map[string]any{"_type": "Configuration"})
	}))
	defer server.Close()

	// The API key wins over a username/password pair.
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "key-123",
		Username:   "alice",
		Password:   "secret",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	require.NoError(t, client.TestConnection(context.Background()))

	basic, err := NewClient(Config{
		BaseURL:    server.URL,
		Username:   "alice",
		Password:   "secret",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	require.NoError(t, basic.TestConnection(context.Background()))

	requests := rec.all()
	require.Len(t, requests, 2)
	require.Equal(t, "/api/v3/configuration", requests[0].Path)
	require.Equal(t, "apikey", requests[0].Username)
	require.Equal(t, "key-123", requests[0].Password)
	require.Equal(t, "application/json", requests[0].Header.Get("Content-Type"))
	require.Equal(t, "alice", requests[1].Username)
	require.Equal(t, "secret", requests[1].Password)
}

func TestClient_ErrorNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/projects/404":
			writeJSON(t, w, http.StatusNotFound, map[string]any{
				"_type":           "Error",
				"errorIdentifier": "urn:openproject-org:api:v3:errors:NotFound",
				"message":         "The requested resource could not be found.",
			})
		case "/api/v3/projects/500":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{
				"_type":           "Error",
				"errorIdentifier": "urn:openproject-org:api:v3:errors:PropertyConstraintViolation",
				"message":         "Name can't be blank.",
			})
		}
	}))
	defer server.Close()
	client := newTestClient(t, server)
	ctx := context.Background()

	_, err := client.GetProject(ctx, 404)
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, IsNotFound(err))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "The requested resource could not be found.", apiErr.Message)

	_, err = client.GetProject(ctx, 500)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "upstream down", apiErr.Message)
	require.NotErrorIs(t, err, ErrNotFound)

	_, err = client.GetProject(ctx, 1)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "openproject: HTTP 422: Name can't be blank.", apiErr.Error())
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "k",
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	err = client.TestConnection(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
	require.True(t, IsTimeout(err))
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrWriteOutcomeUnknown)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url, APIKey: "k", Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.GetWorkPackage(context.Background(), 42)
	require.ErrorIs(t, err, ErrTransport)
	require.True(t, IsTransport(err))
	require.NotErrorIs(t, err, ErrTimeout)
	require.NotErrorIs(t, err, ErrNotFound)

	percentage := 60
	_, err = client.UpdateWorkPackage(context.Background(), 42, WorkPackageUpdate{PercentageDone: &percentage})
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrWriteOutcomeUnknown)
}

func TestClient_APIErrorIsNotTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestClient(t, server).TestConnection(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTransport)
}

func TestGetCollection_Pagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "offset=2&pageSize=5", r.URL.RawQuery)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"_type":    "Collection",
			"total":    11,
			"count":    1,
			"pageSize": 5,
			"offset":   2,
			"_embedded": map[string]any{"elements": []any{
				map[string]any{"_type": "User", "id": 3, "name": "Ada Lovelace", "email": "ada@example.com", "status": "active"},
			}},
		})
	}))
	defer server.Close()
	client := newTestClient(t, server)

	offset, size := 2, 5
	users, err := client.GetUsers(context.Background(), QueryParams{Offset: &offset, PageSize: &size})
	require.NoError(t, err)
	require.Equal(t, "Collection", users.Type)
	require.Equal(t, 11, users.Total)
	require.Equal(t, 5, users.PageSize)
	require.Len(t, users.Elements, 1)
	require.Equal(t, "Ada Lovelace", users.Elements[0].Name)
}
