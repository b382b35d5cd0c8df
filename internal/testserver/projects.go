package testserver

import (
	"errors"
	"net/http"

	"github.com/ganot/openproject-mcp/internal/sqlite"
)

func projectJSON(p *sqlite.Project) map[string]any {
	return map[string]any{
		"_type":       "Project",
		"id":          p.ID,
		"identifier":  p.Identifier,
		"name":        p.Name,
		"description": formattable("markdown", p.Description),
		"public":      p.Public,
		"active":      p.Active,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
		"_links": map[string]any{
			"self":         resourceLink("projects", &p.ID, p.Name),
			"workPackages": link("/api/v3/projects/"+p.Identifier+"/work_packages", ""),
			"parent":       nullLink(),
		},
	}
}

type projectBody struct {
	Name        *string          `json:"name"`
	Identifier  *string          `json:"identifier"`
	Description *formattableBody `json:"description"`
	Public      *bool            `json:"public"`
	Active      *bool            `json:"active"`
}

func (ts *TestServer) listProjects(w http.ResponseWriter, r *http.Request) {
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
	projects, err := ts.projects.List(r.Context(), f.contains("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	elements := make([]any, 0, len(projects))
	for i := range projects {
		elements = append(elements, projectJSON(&projects[i]))
	}
	writeJSON(w, http.StatusOK, collection(paginate(elements, p), len(elements), p.offset, p.pageSize))
}

func (ts *TestServer) getProject(w http.ResponseWriter, r *http.Request) {
	project, ok := ts.loadProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectJSON(project))
}

func (ts *TestServer) createProject(w http.ResponseWriter, r *http.Request) {
	var body projectBody
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	if body.Name == nil || *body.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Name can't be blank.")
		return
	}
	if body.Identifier == nil || *body.Identifier == "" {
		writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Identifier can't be blank.")
		return
	}

	now := timestamp()
	project := &sqlite.Project{
		Identifier: *body.Identifier,
		Name:       *body.Name,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyProjectBody(project, body)

	if err := ts.projects.Create(r.Context(), project); err != nil {
		if errors.Is(err, sqlite.ErrDuplicate) {
			writeError(w, http.StatusUnprocessableEntity, errConstraintViolated, "Identifier has already been taken.")
			return
		}
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, projectJSON(project))
}

func (ts *TestServer) updateProject(w http.ResponseWriter, r *http.Request) {
	project, ok := ts.loadProject(w, r)
	if !ok {
		return
	}
	var body projectBody
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	if body.Name != nil {
		project.Name = *body.Name
	}
	applyProjectBody(project, body)
	project.UpdatedAt = timestamp()

	if err := ts.projects.Update(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, projectJSON(project))
}

func (ts *TestServer) deleteProject(w http.ResponseWriter, r *http.Request) {
	project, ok := ts.loadProject(w, r)
	if !ok {
		return
	}
	if err := ts.projects.Delete(r.Context(), project.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func applyProjectBody(project *sqlite.Project, body projectBody) {
	if body.Description != nil {
		project.Description = body.Description.Raw
	}
	if body.Public != nil {
		project.Public = *body.Public
	}
	if body.Active != nil {
		project.Active = *body.Active
	}
}

func (ts *TestServer) loadProject(w http.ResponseWriter, r *http.Request) (*sqlite.Project, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return nil, false
	}
	project, err := ts.projects.Get(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound, "The requested resource could not be found.")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return nil, false
	}
	return project, true
}
