package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	paths []string
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.paths = append(h.paths, r.URL.Path)
	w.WriteHeader(http.StatusAccepted)
}

func get(t *testing.T, url, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRouter_MCP(t *testing.T) {
	handler := &recordingHandler{}
	server := httptest.NewServer(NewRouter(handler, ""))
	t.Cleanup(server.Close)

	require.Equal(t, http.StatusAccepted, get(t, server.URL+"/mcp", ""))
	require.Equal(t, http.StatusAccepted, get(t, server.URL+"/mcp/messages", ""))
	require.Equal(t, http.StatusNotFound, get(t, server.URL+"/other", ""))
	require.Equal(t, []string{"/mcp", "/mcp/messages"}, handler.paths)
}

func TestRouter_AuthToken(t *testing.T) {
	handler := &recordingHandler{}
	server := httptest.NewServer(NewRouter(handler, "secret"))
	t.Cleanup(server.Close)

	require.Equal(t, http.StatusUnauthorized, get(t, server.URL+"/mcp", ""))
	require.Equal(t, http.StatusAccepted, get(t, server.URL+"/mcp", "secret"))
	require.Equal(t, http.StatusOK, get(t, server.URL+"/health", ""))
	require.Len(t, handler.paths, 1)
}

func TestRouter_Health(t *testing.T) {
	server := httptest.NewServer(NewRouter(&recordingHandler{}, ""))
	t.Cleanup(server.Close)

	require.Equal(t, http.StatusOK, get(t, server.URL+"/health", ""))
}
