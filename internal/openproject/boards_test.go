package openproject

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func grid7(widgets ...map[string]any) map[string]any {
	if widgets == nil {
		widgets = []map[string]any{}
	}
	return map[string]any{
		"_type":       "Grid",
		"id":          7,
		"name":        "Sprint",
		"rowCount":    1,
		"columnCount": 3,
		"widgets":     widgets,
		"options":     map[string]any{"description": "Current sprint", "highlightingMode": "priority"},
		"_links": map[string]any{
			"scope": map[string]any{"href": "/projects/5/boards"},
		},
	}
}

func queryWidget(id, column int) map[string]any {
	return map[string]any{
		"id":          id,
		"identifier":  "work_package_query",
		"startRow":    1,
		"endRow":      2,
		"startColumn": column,
		"endColumn":   column + 1,
		"options":     map[string]any{"queryId": 30 + id},
	}
}

func TestGetBoard_Normalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/grids/7", r.URL.Path)
		writeJSON(t, w, http.StatusOK, grid7(queryWidget(1, 1)))
	}))
	defer server.Close()

	board, err := newTestClient(t, server).GetBoard(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Sprint", board.Name)
	require.Equal(t, "Current sprint", board.Description)
	require.Equal(t, "/projects/5/boards", board.Scope)
	require.Len(t, board.Widgets, 1)
	queryID, ok := board.Widgets[0].QueryID()
	require.True(t, ok)
	require.Equal(t, 31, queryID)
}

func TestGetBoards_FiltersByScope(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"_type": "Collection", "total": 1, "count": 1, "pageSize": 20, "offset": 1,
			"_embedded": map[string]any{"elements": []any{grid7()}},
		})
	}))
	defer server.Close()

	projectID := 5
	boards, err := newTestClient(t, server).GetBoards(context.Background(), &projectID, QueryParams{})
	require.NoError(t, err)
	require.Equal(t, 1, boards.Total)
	require.Equal(t, []Widget{}, boards.Elements[0].Widgets)

	requests := rec.all()
	require.Len(t, requests, 1)
	require.Equal(t, "/api/v3/grids", requests[0].Path)
	query, err := url.ParseQuery(requests[0].RawQuery)
	require.NoError(t, err)
	require.JSONEq(t, `[{"scope":{"operator":"=","values":["/projects/5/boards"]}}]`, query.Get("filters"))
}

func TestCreateBoard_DefaultsAndScope(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusCreated, grid7())
	}))
	defer server.Close()

	_, err := newTestClient(t, server).CreateBoard(context.Background(), BoardCreate{ProjectID: 5, Name: "Sprint"})
	require.NoError(t, err)

	body := rec.all()[0].Body
	require.EqualValues(t, 1, body["rowCount"])
	require.EqualValues(t, 3, body["columnCount"])
	require.Equal(t, []any{}, body["widgets"])
	require.Equal(t, map[string]any{"scope": map[string]any{"href": "/projects/5/boards"}}, body["_links"])
	require.NotContains(t, body, "options")
}

func TestUpdateBoard_DescriptionKeepsOtherOptions(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusOK, grid7())
	}))
	defer server.Close()

	description := "Next sprint"
	_, err := newTestClient(t, server).UpdateBoard(context.Background(), 7, BoardUpdate{Description: &description})
	require.NoError(t, err)

	requests := rec.all()
	require.Len(t, requests, 2)
	require.Equal(t, http.MethodGet, requests[0].Method)
	require.Equal(t, http.MethodPatch, requests[1].Method)
	require.Equal(t, map[string]any{
		"options": map[string]any{"description": "Next sprint", "highlightingMode": "priority"},
	}, requests[1].Body)
}

func TestAddBoardWidget(t *testing.T) {
	t.Run("appends to the current widgets", func(t *testing.T) {
		rec := &recorder{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(t, r)
			writeJSON(t, w, http.StatusOK, grid7(queryWidget(1, 1)))
		}))
		defer server.Close()

		_, err := newTestClient(t, server).AddBoardWidget(context.Background(), 7, Widget{
			Identifier: "work_package_query", StartRow: 1, EndRow: 2, StartColumn: 2, EndColumn: 3,
		})
		require.NoError(t, err)

		widgets := rec.all()[1].Body["widgets"].([]any)
		require.Len(t, widgets, 2)
		added := widgets[1].(map[string]any)
		require.EqualValues(t, 2, added["startColumn"])
		require.Equal(t, map[string]any{}, added["options"])
		require.NotContains(t, added, "id")
	})

	t.Run("rejects an empty rectangle before any request", func(t *testing.T) {
		rec := &recorder{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(t, r)
		}))
		defer server.Close()

		_, err := newTestClient(t, server).AddBoardWidget(context.Background(), 7, Widget{StartRow: 2, EndRow: 2, StartColumn: 1, EndColumn: 2})
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Empty(t, rec.all())
	})
}

func TestRemoveBoardWidget(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusOK, grid7(queryWidget(1, 1)))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	_, err := client.RemoveBoardWidget(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"widgets": []any{}}, rec.all()[1].Body)

	_, err = client.RemoveBoardWidget(context.Background(), 7, 99)
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, rec.all(), 3)
}
