package openproject

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func workPackage42(lockVersion int) map[string]any {
	return map[string]any{
		"_type":          "WorkPackage",
		"id":             42,
		"lockVersion":    lockVersion,
		"subject":        "Write docs",
		"description":    map[string]any{"format": "markdown", "raw": "Explain the API", "html": "<p>Explain the API</p>"},
		"percentageDone": 10,
		"_links": map[string]any{
			"status":   map[string]any{"href": "/api/v3/statuses/1", "title": "New"},
			"type":     map[string]any{"href": "/api/v3/types/1", "title": "Task"},
			"project":  map[string]any{"href": "/api/v3/projects/5", "title": "Docs"},
			"assignee": map[string]any{"href": nil},
			"parent":   map[string]any{"href": "/api/v3/work_packages/40"},
		},
	}
}

func TestGetWorkPackage_NormalizesLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/work_packages/42", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":          42,
			"lockVersion": 3,
			"_links": map[string]any{
				"status": map[string]any{"href": "/api/v3/statuses/1", "title": "New"},
			},
		})
	}))
	defer server.Close()
	client := newTestClient(t, server)

	wp, err := client.GetWorkPackage(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 42, wp.ID)
	require.Equal(t, 3, wp.LockVersion)
	require.Equal(t, &Ref{ID: 1, Name: "New"}, wp.Status)
	require.Nil(t, wp.Assignee)
	require.Equal(t, "", wp.Description)
}

func TestGetWorkPackage_FullShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, workPackage42(7))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	wp, err := client.GetWorkPackage(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "Explain the API", wp.Description)
	require.Equal(t, &Ref{ID: 5, Name: "Docs"}, wp.Project)
	require.Equal(t, &Ref{ID: 40, Name: "Unknown"}, wp.Parent)
	require.Nil(t, wp.Assignee)
	require.Equal(t, 10, wp.PercentageDone)
}

// lockServer serves GET for work package 42 and records PATCH bodies.
func lockServer(t *testing.T, rec *recorder, lockVersion int, patch http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v3/work_packages/42":
			writeJSON(t, w, http.StatusOK, workPackage42(lockVersion))
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v3/work_packages/42":
			if patch != nil {
				patch(w, r)
				return
			}
			writeJSON(t, w, http.StatusOK, workPackage42(lockVersion+1))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v3/work_packages":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"_type": "Collection", "total": 0, "count": 0,
				"_embedded": map[string]any{"elements": []any{}},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
}

func TestUpdateWorkPackage_ScalarOnly(t *testing.T) {
	rec := &recorder{}
	server := lockServer(t, rec, 3, nil)
	defer server.Close()
	client := newTestClient(t, server)

	done := 60
	wp, err := client.UpdateWorkPackage(context.Background(), 42, WorkPackageUpdate{PercentageDone: &done})
	require.NoError(t, err)
	require.Equal(t, 4, wp.LockVersion)

	requests := rec.all()
	require.Len(t, requests, 2)
	require.Equal(t, http.MethodGet, requests[0].Method)
	require.Equal(t, http.MethodPatch, requests[1].Method)
	require.Equal(t, map[string]any{"lockVersion": float64(3), "percentageDone": float64(60)}, requests[1].Body)
	require.NotContains(t, requests[1].Body, "_links")
}

func TestUpdateWorkPackage_RelationshipsAsLinks(t *testing.T) {
	rec := &recorder{}
	server := lockServer(t, rec, 9, nil)
	defer server.Close()
	client := newTestClient(t, server)

	status, assignee, priority := 7, 12, 8
	subject, description := "Renamed", "plain body"
	_, err := client.UpdateWorkPackage(context.Background(), 42, WorkPackageUpdate{
		Subject:     &subject,
		Description: &description,
		StatusID:    &status,
		AssigneeID:  &assignee,
		PriorityID:  &priority,
	})
	require.NoError(t, err)

	body := rec.all()[1].Body
	require.Equal(t, float64(9), body["lockVersion"])
	require.Equal(t, "Renamed", body["subject"])
	require.Equal(t, map[string]any{"format": "text", "raw": "plain body"}, body["description"])
	for _, flat := range []string{"status", "assignee", "priority", "statusId", "assigneeId", "priorityId"} {
		require.NotContains(t, body, flat)
	}

	links := body["_links"].(map[string]any)
	require.Len(t, links, 3)
	require.True(t, strings.HasSuffix(links["status"].(map[string]any)["href"].(string), "/api/v3/statuses/7"))
	require.True(t, strings.HasSuffix(links["assignee"].(map[string]any)["href"].(string), "/api/v3/users/12"))
	require.True(t, strings.HasSuffix(links["priority"].(map[string]any)["href"].(string), "/api/v3/priorities/8"))
	require.Equal(t, server.URL+"/api/v3/statuses/7", links["status"].(map[string]any)["href"])
}

func TestUpdateWorkPackage_NotFoundStopsBeforeWrite(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusNotFound, map[string]any{"_type": "Error", "message": "not found"})
	}))
	defer server.Close()
	client := newTestClient(t, server)

	subject := "x"
	_, err := client.UpdateWorkPackage(context.Background(), 42, WorkPackageUpdate{Subject: &subject})
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, rec.all(), 1)
}

func TestUpdateWorkPackage_Conflict(t *testing.T) {
	rec := &recorder{}
	server := lockServer(t, rec, 3, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]any{
			"_type":           "Error",
			"errorIdentifier": "urn:openproject-org:api:v3:errors:UpdateConflict",
			"message":         "Your changes could not be saved, because the work package was changed in the meantime.",
		})
	})
	defer server.Close()
	client := newTestClient(t, server)

	_, err := client.SetWorkPackageStatus(context.Background(), 42, 7)
	require.ErrorIs(t, err, ErrConflict)
	require.True(t, IsConflict(err))
	require.NotErrorIs(t, err, ErrWriteOutcomeUnknown)
}

func TestUpdateWorkPackage_WriteTimeoutIsAmbiguous(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	server := lockServer(t, rec, 3, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer server.Close()
	defer close(release)

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "k", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	done := 80
	_, err = client.UpdateWorkPackage(context.Background(), 42, WorkPackageUpdate{PercentageDone: &done})
	require.ErrorIs(t, err, ErrWriteOutcomeUnknown)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSetWorkPackageParent(t *testing.T) {
	rec := &recorder{}
	server := lockServer(t, rec, 2, func(w http.ResponseWriter, r *http.Request) {
		updated := workPackage42(3)
		updated["_links"].(map[string]any)["parent"] = map[string]any{"href": "/api/v3/work_packages/77", "title": "Epic"}
		writeJSON(t, w, http.StatusOK, updated)
	})
	defer server.Close()
	client := newTestClient(t, server)

	change, err := client.SetWorkPackageParent(context.Background(), 42, 77)
	require.NoError(t, err)

	requests := rec.all()
	patch := requests[1]
	require.Equal(t, http.MethodPatch, patch.Method)
	require.Equal(t, map[string]any{
		"lockVersion": float64(2),
		"_links": map[string]any{
			"parent": map[string]any{"href": server.URL + "/api/v3/work_packages/77"},
		},
	}, patch.Body)

	require.Equal(t, &Ref{ID: 40, Name: "Unknown"}, change.PreviousParent)
	require.Equal(t, &Ref{ID: 77, Name: "Epic"}, change.Parent)

	// The fake lists no children anywhere, so the new parent does not show
	// the child yet and the change is flagged.
	require.False(t, change.Verified)
	require.Len(t, change.Inconsistencies, 1)
	require.Contains(t, change.Inconsistencies[0], "not yet listed as a child of 77")

	verify := requests[2]
	require.Equal(t, "/api/v3/work_packages", verify.Path)
	require.Contains(t, verify.RawQuery, "pageSize=1000")
}

func TestRemoveWorkPackageParent_SendsNullHref(t *testing.T) {
	rec := &recorder{}
	server := lockServer(t, rec, 5, func(w http.ResponseWriter, r *http.Request) {
		updated := workPackage42(6)
		updated["_links"].(map[string]any)["parent"] = map[string]any{"href": nil}
		writeJSON(t, w, http.StatusOK, updated)
	})
	defer server.Close()
	client := newTestClient(t, server)

	change, err := client.RemoveWorkPackageParent(context.Background(), 42)
	require.NoError(t, err)

	patch := rec.all()[1]
	links := patch.Body["_links"].(map[string]any)
	parent, ok := links["parent"].(map[string]any)
	require.True(t, ok)
	href, present := parent["href"]
	require.True(t, present)
	require.Nil(t, href)

	require.Nil(t, change.Parent)
	require.True(t, change.Verified)
	require.Empty(t, change.Inconsistencies)
}

func TestSearch_KeepsCallerFilters(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(t, r)
		writeJSON(t, w, http.StatusOK, map[string]any{"_type": "Collection", "total": 0, "count": 0, "_embedded": map[string]any{"elements": []any{}}})
	}))
	defer server.Close()
	client := newTestClient(t, server)
	ctx := context.Background()

	params := QueryParams{Filters: `[{"status":{"operator":"o","values":[]}}]`}
	_, err := client.SearchWorkPackages(ctx, "docs", params)
	require.NoError(t, err)
	_, err = client.SearchProjects(ctx, "docs", params)
	require.NoError(t, err)
	_, err = client.SearchUsers(ctx, "docs", params)
	require.NoError(t, err)

	requests := rec.all()
	require.Len(t, requests, 3)
	for i, field := range []string{"subject", "name", "name"} {
		query, err := url.ParseQuery(requests[i].RawQuery)
		require.NoError(t, err)
		var filters []map[string]filterCondition
		require.NoError(t, json.Unmarshal([]byte(query.Get("filters")), &filters))
		require.Equal(t, []map[string]filterCondition{
			{"status": {Operator: "o", Values: []string{}}},
			{field: {Operator: "~", Values: []string{"docs"}}},
		}, filters, requests[i].Path)
	}

	_, err = client.SearchWorkPackages(ctx, "docs", QueryParams{Filters: "not json"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Len(t, rec.all(), 3)
}
