package testserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ganot/openproject-mcp/internal/sqlite"
)

func (ts *TestServer) timeEntryJSON(ctx context.Context, e *sqlite.TimeEntry) (map[string]any, error) {
	project, err := ts.projects.Get(ctx, e.ProjectID)
	if err != nil {
		return nil, err
	}
	activity, err := ts.reference.Name(ctx, "activities", e.ActivityID)
	if err != nil {
		return nil, err
	}
	user, err := ts.reference.User(ctx, e.UserID)
	if err != nil {
		return nil, err
	}
	workPackage := nullLink()
	if e.WorkPackageID != nil {
		wp, err := ts.workPackages.Get(ctx, *e.WorkPackageID)
		if err != nil {
			return nil, err
		}
		workPackage = resourceLink("work_packages", &wp.ID, wp.Subject)
	}

	return map[string]any{
		"_type":     "TimeEntry",
		"id":        e.ID,
		"hours":     e.Hours,
		"spentOn":   e.SpentOn,
		"comment":   formattable("plain", e.Comment),
		"createdAt": e.CreatedAt,
		"updatedAt": e.CreatedAt,
		"_links": map[string]any{
			"self":        resourceLink("time_entries", &e.ID, ""),
			"project":     resourceLink("projects", &e.ProjectID, project.Name),
			"workPackage": workPackage,
			"user":        resourceLink("users", &user.ID, user.Name()),
			"activity":    link(fmt.Sprintf("/api/v3/time_entries/activities/%d", e.ActivityID), activity),
		},
	}, nil
}

type timeEntryBody struct {
	Hours   string           `json:"hours"`
	SpentOn string           `json:"spentOn"`
	Comment *formattableBody `json:"comment"`
	Links   bodyLinks        `json:"_links"`
}

func (ts *TestServer) listTimeEntries(w http.ResponseWriter, r *http.Request) {
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
	var filter sqlite.TimeEntryFilter
	for name, target := range map[string]**int{
		"project":      &filter.ProjectID,
		"work_package": &filter.WorkPackageID,
		"user":         &filter.UserID,
	} {
		if *target, err = f.equalsID(name); err != nil {
			writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
			return
		}
	}

	entries, err := ts.timeEntries.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	elements := make([]any, 0, len(entries))
	for i := range entries {
		element, err := ts.timeEntryJSON(r.Context(), &entries[i])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", err.Error())
			return
		}
		elements = append(elements, element)
	}
	writeJSON(w, http.StatusOK, collection(paginate(elements, p), len(elements), p.offset, p.pageSize))
}

func (ts *TestServer) getTimeEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := ts.loadTimeEntry(w, r)
	if !ok {
		return
	}
	ts.writeTimeEntry(w, r, http.StatusOK, entry)
}

func (ts *TestServer) createTimeEntry(w http.ResponseWriter, r *http.Request) {
	var body timeEntryBody
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	if body.Hours == "" || body.SpentOn == "" {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Hours and spent on can't be blank.")
		return
	}
	projectID, _, err := body.Links.id("project")
	if err != nil || projectID == nil {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Project can't be blank.")
		return
	}
	activityID, _, err := body.Links.id("activity")
	if err != nil || activityID == nil {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Activity can't be blank.")
		return
	}
	workPackageID, _, err := body.Links.id("workPackage")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, err.Error())
		return
	}

	entry := &sqlite.TimeEntry{
		ProjectID:     *projectID,
		WorkPackageID: workPackageID,
		UserID:        1,
		ActivityID:    *activityID,
		Hours:         body.Hours,
		SpentOn:       body.SpentOn,
		CreatedAt:     timestamp(),
	}
	if body.Comment != nil {
		entry.Comment = body.Comment.Raw
	}
	if err := ts.timeEntries.Create(r.Context(), entry); err != nil {
		if errors.Is(err, sqlite.ErrForeignKeyViolation) {
			writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "A linked resource does not exist.")
			return
		}
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	ts.writeTimeEntry(w, r, http.StatusCreated, entry)
}

func (ts *TestServer) deleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := ts.loadTimeEntry(w, r)
	if !ok {
		return
	}
	if err := ts.timeEntries.Delete(r.Context(), entry.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ts *TestServer) writeTimeEntry(w http.ResponseWriter, r *http.Request, status int, entry *sqlite.TimeEntry) {
	body, err := ts.timeEntryJSON(r.Context(), entry)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, status, body)
}

func (ts *TestServer) loadTimeEntry(w http.ResponseWriter, r *http.Request) (*sqlite.TimeEntry, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return nil, false
	}
	entry, err := ts.timeEntries.Get(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return nil, false
	}
	return entry, true
}
