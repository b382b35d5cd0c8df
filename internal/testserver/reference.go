package testserver

import (
	"errors"
	"net/http"

	"github.com/ganot/openproject-mcp/internal/sqlite"
)

func (ts *TestServer) listStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := ts.reference.Statuses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	elements := make([]any, 0, len(statuses))
	for i, status := range statuses {
		elements = append(elements, map[string]any{
			"_type":     "Status",
			"id":        status.ID,
			"name":      status.Name,
			"position":  i + 1,
			"isClosed":  status.IsClosed,
			"isDefault": status.IsDefault,
			"_links": map[string]any{
				"self": resourceLink("statuses", &status.ID, status.Name),
			},
		})
	}
	writeJSON(w, http.StatusOK, collection(elements, len(elements), 1, len(elements)))
}

// listNamed serves a reference table such as types or roles as an
// unpaginated collection.
func (ts *TestServer) listNamed(table, halType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ts.reference.Named(r.Context(), table)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", err.Error())
			return
		}
		elements := make([]any, 0, len(rows))
		for i, row := range rows {
			elements = append(elements, namedJSON(table, halType, row, i+1))
		}
		writeJSON(w, http.StatusOK, collection(elements, len(elements), 1, len(elements)))
	}
}

func namedJSON(table, halType string, row sqlite.Named, position int) map[string]any {
	element := map[string]any{
		"_type":    halType,
		"id":       row.ID,
		"name":     row.Name,
		"position": position,
		"_links": map[string]any{
			"self": resourceLink(table, &row.ID, row.Name),
		},
	}
	switch halType {
	case "Type":
		element["isMilestone"] = row.Name == "Milestone"
		element["isDefault"] = row.Name == "Task"
	case "Priority":
		element["isDefault"] = row.Name == "Normal"
		element["isActive"] = true
	}
	return element
}

func (ts *TestServer) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return
	}
	name, err := ts.reference.Name(r.Context(), "roles", id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, namedJSON("roles", "Role", sqlite.Named{ID: id, Name: name}, 0))
}

func userJSON(u *sqlite.User) map[string]any {
	return map[string]any{
		"_type":     "User",
		"id":        u.ID,
		"login":     u.Login,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"name":      u.Name(),
		"email":     u.Email,
		"admin":     u.Admin,
		"status":    u.Status,
		"language":  "en",
		"_links": map[string]any{
			"self": resourceLink("users", &u.ID, u.Name()),
		},
	}
}

func (ts *TestServer) listUsers(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}
	users, err := ts.reference.Users(r.Context(), f.contains("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	elements := make([]any, 0, len(users))
	for i := range users {
		elements = append(elements, userJSON(&users[i]))
	}
	writeJSON(w, http.StatusOK, collection(paginate(elements, p), len(elements), p.offset, p.pageSize))
}

func (ts *TestServer) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return
	}
	ts.writeUser(w, r, id)
}

// getCurrentUser serves /users/me. Every API key belongs to the admin.
func (ts *TestServer) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	ts.writeUser(w, r, 1)
}

func (ts *TestServer) writeUser(w http.ResponseWriter, r *http.Request, id int) {
	user, err := ts.reference.User(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, userJSON(user))
}
