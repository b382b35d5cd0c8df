package openproject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkRef(t *testing.T) {
	closed := LinkTo("/api/v3/statuses/7")
	closed.Title = "Closed"
	require.Equal(t, &Ref{ID: 7, Name: "Closed"}, closed.Ref())

	untitled := LinkTo("https://op.example.com/api/v3/users/12")
	require.Equal(t, &Ref{ID: 12, Name: "Unknown"}, untitled.Ref())

	require.Nil(t, NullLink().Ref())
	require.Nil(t, LinkTo("/api/v3/project_statuses/on_track").Ref())
	require.Nil(t, NormalizeLink(nil))
}

func TestParseLinkID(t *testing.T) {
	id, ok := ParseLinkID("/api/v3/work_packages/42/")
	require.True(t, ok)
	require.Equal(t, 42, id)

	_, ok = ParseLinkID("")
	require.False(t, ok)
}

func TestResolveRef_PrefersFlatObject(t *testing.T) {
	link := LinkTo("/api/v3/statuses/1")
	link.Title = "New"

	require.Equal(t, &Ref{ID: 5, Name: "In progress"}, resolveRef(&flatRef{ID: 5, Name: "In progress"}, &link))
	require.Equal(t, &Ref{ID: 1, Name: "New"}, resolveRef(nil, &link))
	require.Equal(t, &Ref{ID: 9, Name: "Parent task"}, resolveRef(&flatRef{ID: 9, Subject: "Parent task"}, nil))
}

func TestLink_NullHrefMarshalsExplicitly(t *testing.T) {
	data, err := json.Marshal(map[string]Link{"parent": NullLink()})
	require.NoError(t, err)
	require.JSONEq(t, `{"parent":{"href":null}}`, string(data))
}

func TestResourceHref(t *testing.T) {
	require.Equal(t, "https://op.example.com/api/v3/statuses/7", resourceHref("https://op.example.com", "statuses", 7))
	require.Equal(t, "http://127.0.0.1:8080/op/api/v3/time_entries/activities/3", resourceHref("http://127.0.0.1:8080/op", "time_entries/activities", 3))
}
