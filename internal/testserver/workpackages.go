package testserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/ganot/openproject-mcp/internal/sqlite"
)

func (ts *TestServer) workPackageJSON(ctx context.Context, wp *sqlite.WorkPackage) (map[string]any, error) {
	project, err := ts.projects.Get(ctx, wp.ProjectID)
	if err != nil {
		return nil, err
	}
	typeName, err := ts.reference.Name(ctx, "types", wp.TypeID)
	if err != nil {
		return nil, err
	}
	statusName, err := ts.reference.Name(ctx, "statuses", wp.StatusID)
	if err != nil {
		return nil, err
	}
	priorityName := ""
	if wp.PriorityID != nil {
		if priorityName, err = ts.reference.Name(ctx, "priorities", *wp.PriorityID); err != nil {
			return nil, err
		}
	}
	assigneeName := ""
	if wp.AssigneeID != nil {
		user, err := ts.reference.User(ctx, *wp.AssigneeID)
		if err != nil {
			return nil, err
		}
		assigneeName = user.Name()
	}
	parentSubject := ""
	if wp.ParentID != nil {
		parent, err := ts.workPackages.Get(ctx, *wp.ParentID)
		if err != nil {
			return nil, err
		}
		parentSubject = parent.Subject
	}

	return map[string]any{
		"_type":          "WorkPackage",
		"id":             wp.ID,
		"lockVersion":    wp.LockVersion,
		"subject":        wp.Subject,
		"description":    formattable("markdown", wp.Description),
		"startDate":      wp.StartDate,
		"dueDate":        wp.DueDate,
		"estimatedTime":  wp.EstimatedTime,
		"percentageDone": wp.PercentageDone,
		"createdAt":      wp.CreatedAt,
		"updatedAt":      wp.UpdatedAt,
		"_links": map[string]any{
			"self":     resourceLink("work_packages", &wp.ID, wp.Subject),
			"project":  resourceLink("projects", &wp.ProjectID, project.Name),
			"type":     resourceLink("types", &wp.TypeID, typeName),
			"status":   resourceLink("statuses", &wp.StatusID, statusName),
			"priority": resourceLink("priorities", wp.PriorityID, priorityName),
			"assignee": resourceLink("users", wp.AssigneeID, assigneeName),
			"parent":   resourceLink("work_packages", wp.ParentID, parentSubject),
			"author":   link("/api/v3/users/1", "OpenProject Admin"),
		},
	}, nil
}

type workPackageBody struct {
	LockVersion    *int             `json:"lockVersion"`
	Subject        *string          `json:"subject"`
	Description    *formattableBody `json:"description"`
	StartDate      *string          `json:"startDate"`
	DueDate        *string          `json:"dueDate"`
	EstimatedTime  *string          `json:"estimatedTime"`
	PercentageDone *int             `json:"percentageDone"`
	Links          bodyLinks        `json:"_links"`
}

// apply copies the present fields of body onto wp.
func (body workPackageBody) apply(wp *sqlite.WorkPackage) error {
	if body.Subject != nil {
		wp.Subject = *body.Subject
	}
	if body.Description != nil {
		wp.Description = body.Description.Raw
	}
	if body.StartDate != nil {
		wp.StartDate = body.StartDate
	}
	if body.DueDate != nil {
		wp.DueDate = body.DueDate
	}
	if body.EstimatedTime != nil {
		wp.EstimatedTime = body.EstimatedTime
	}
	if body.PercentageDone != nil {
		wp.PercentageDone = *body.PercentageDone
	}

	for name, target := range map[string]**int{
		"priority": &wp.PriorityID,
		"assignee": &wp.AssigneeID,
		"parent":   &wp.ParentID,
	} {
		id, present, err := body.Links.id(name)
		if err != nil {
			return err
		}
		if present {
			*target = id
		}
	}
	for name, target := range map[string]*int{
		"type":   &wp.TypeID,
		"status": &wp.StatusID,
	} {
		id, _, err := body.Links.id(name)
		if err != nil {
			return err
		}
		if id != nil {
			*target = *id
		}
	}
	return nil
}

func (ts *TestServer) listWorkPackages(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}
	projectID, err := f.equalsID("project")
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}
	ts.writeWorkPackages(w, r, f, projectID)
}

func (ts *TestServer) listProjectWorkPackages(w http.ResponseWriter, r *http.Request) {
	project, ok := ts.loadProject(w, r)
	if !ok {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}
	ts.writeWorkPackages(w, r, f, &project.ID)
}

func (ts *TestServer) writeWorkPackages(w http.ResponseWriter, r *http.Request, f filters, projectID *int) {
	p, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}
	parentID, err := f.equalsID("parent")
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidQuery, err.Error())
		return
	}

	wps, total, err := ts.workPackages.List(r.Context(), sqlite.WorkPackageFilter{
		ProjectID:       projectID,
		ParentID:        parentID,
		SubjectContains: f.contains("subject"),
		Limit:           p.limit(),
		Offset:          p.skip(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	elements := make([]any, 0, len(wps))
	for i := range wps {
		element, err := ts.workPackageJSON(r.Context(), &wps[i])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", err.Error())
			return
		}
		elements = append(elements, element)
	}
	writeJSON(w, http.StatusOK, collection(elements, total, p.offset, p.pageSize))
}

func (ts *TestServer) getWorkPackage(w http.ResponseWriter, r *http.Request) {
	wp, ok := ts.loadWorkPackage(w, r)
	if !ok {
		return
	}
	ts.writeWorkPackage(w, r, http.StatusOK, wp.ID)
}

func (ts *TestServer) createWorkPackage(w http.ResponseWriter, r *http.Request) {
	var body workPackageBody
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	if body.Subject == nil || *body.Subject == "" {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Subject can't be blank.")
		return
	}
	projectID, _, err := body.Links.id("project")
	if err != nil || projectID == nil {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Project can't be blank.")
		return
	}

	now := timestamp()
	wp := &sqlite.WorkPackage{
		ProjectID: *projectID,
		TypeID:    1,
		StatusID:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := body.apply(wp); err != nil {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, err.Error())
		return
	}
	if err := ts.workPackages.Create(r.Context(), wp); err != nil {
		if errors.Is(err, sqlite.ErrForeignKeyViolation) {
			writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "A linked resource does not exist.")
			return
		}
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	ts.writeWorkPackage(w, r, http.StatusCreated, wp.ID)
}

func (ts *TestServer) updateWorkPackage(w http.ResponseWriter, r *http.Request) {
	wp, ok := ts.loadWorkPackage(w, r)
	if !ok {
		return
	}
	var body workPackageBody
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	if body.LockVersion == nil {
		writeError(w, http.StatusConflict, errUpdateConflict, "Your changes could not be saved because the lock version is missing.")
		return
	}
	if err := body.apply(wp); err != nil {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, err.Error())
		return
	}
	if wp.ParentID != nil && *wp.ParentID == wp.ID {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Parent cannot be the work package itself.")
		return
	}
	wp.UpdatedAt = timestamp()

	ts.mu.Lock()
	hook := ts.patchHook
	reindex := !ts.staleParents
	ts.mu.Unlock()
	if hook != nil {
		hook()
	}

	err := ts.workPackages.Update(r.Context(), wp, *body.LockVersion, reindex)
	switch {
	case errors.Is(err, sqlite.ErrConflict):
		writeError(w, http.StatusConflict, errUpdateConflict,
			"Could not update the resource because of conflicting modifications.")
		return
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return
	case errors.Is(err, sqlite.ErrForeignKeyViolation):
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "A linked resource does not exist.")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	ts.writeWorkPackage(w, r, http.StatusOK, wp.ID)
}

func (ts *TestServer) deleteWorkPackage(w http.ResponseWriter, r *http.Request) {
	wp, ok := ts.loadWorkPackage(w, r)
	if !ok {
		return
	}
	if err := ts.workPackages.Delete(r.Context(), wp.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ts *TestServer) writeWorkPackage(w http.ResponseWriter, r *http.Request, status, id int) {
	wp, err := ts.workPackages.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	body, err := ts.workPackageJSON(r.Context(), wp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, status, body)
}

func (ts *TestServer) loadWorkPackage(w http.ResponseWriter, r *http.Request) (*sqlite.WorkPackage, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return nil, false
	}
	wp, err := ts.workPackages.Get(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return nil, false
	}
	return wp, true
}
