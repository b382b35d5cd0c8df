package testserver

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	errNotFound           = "urn:openproject-org:api:v3:errors:NotFound"
	errUnauthenticated    = "urn:openproject-org:api:v3:errors:Unauthenticated"
	errUpdateConflict     = "urn:openproject-org:api:v3:errors:UpdateConflict"
	errConstraintViolated = "urn:openproject-org:api:v3:errors:PropertyConstraintViolation"
	errInvalidQuery       = "urn:openproject-org:api:v3:errors:InvalidQuery"
	errInvalidBody        = "urn:openproject-org:api:v3:errors:InvalidRequestBody"

	defaultPageSize = 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/hal+json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, identifier, message string) {
	writeJSON(w, status, map[string]any{
		"_type":           "Error",
		"errorIdentifier": identifier,
		"message":         message,
	})
}

func link(href, title string) map[string]any {
	l := map[string]any{"href": href}
	if title != "" {
		l["title"] = title
	}
	return l
}

func nullLink() map[string]any {
	return map[string]any{"href": nil}
}

func resourceLink(collection string, id *int, title string) map[string]any {
	if id == nil {
		return nullLink()
	}
	return link(fmt.Sprintf("/api/v3/%s/%d", collection, *id), title)
}

func formattable(format, raw string) map[string]any {
	rendered := ""
	if raw != "" {
		rendered = "<p>" + html.EscapeString(raw) + "</p>"
	}
	return map[string]any{"format": format, "raw": raw, "html": rendered}
}

func collection(elements []any, total, offset, pageSize int) map[string]any {
	return map[string]any{
		"_type":    "Collection",
		"total":    total,
		"count":    len(elements),
		"pageSize": pageSize,
		"offset":   offset,
		"_embedded": map[string]any{
			"elements": elements,
		},
	}
}

// page is the offset (1-based page number) and page size of a request.
type page struct {
	offset   int
	pageSize int
}

func (p page) limit() int {
	return p.pageSize
}

func (p page) skip() int {
	return (p.offset - 1) * p.pageSize
}

func parsePage(r *http.Request) (page, error) {
	p := page{offset: 1, pageSize: defaultPageSize}
	query := r.URL.Query()
	if raw := query.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid offset %q", raw)
		}
		p.offset = n
	}
	if raw := query.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid pageSize %q", raw)
		}
		p.pageSize = n
	}
	return p, nil
}

// paginate slices elements the way the API pages collections.
func paginate(elements []any, p page) []any {
	start := min(p.skip(), len(elements))
	end := min(start+p.limit(), len(elements))
	return elements[start:end]
}

type filterCondition struct {
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// filters maps a filter name to its condition. Later predicates on the
// same name win.
type filters map[string]filterCondition

func parseFilters(r *http.Request) (filters, error) {
	parsed := filters{}
	raw := r.URL.Query().Get("filters")
	if raw == "" {
		return parsed, nil
	}
	var predicates []map[string]filterCondition
	if err := json.Unmarshal([]byte(raw), &predicates); err != nil {
		return nil, fmt.Errorf("filters is not a JSON array of predicates: %w", err)
	}
	for _, predicate := range predicates {
		for name, condition := range predicate {
			parsed[name] = condition
		}
	}
	return parsed, nil
}

// equalsID returns the id of an "=" filter on name.
func (f filters) equalsID(name string) (*int, error) {
	condition, ok := f[name]
	if !ok || condition.Operator == "*" {
		return nil, nil
	}
	if condition.Operator != "=" || len(condition.Values) != 1 {
		return nil, fmt.Errorf("unsupported %s filter %q", name, condition.Operator)
	}
	id, err := strconv.Atoi(condition.Values[0])
	if err != nil {
		return nil, fmt.Errorf("invalid %s filter value %q", name, condition.Values[0])
	}
	return &id, nil
}

// contains returns the value of a "~" filter on name.
func (f filters) contains(name string) string {
	condition, ok := f[name]
	if !ok || condition.Operator != "~" || len(condition.Values) == 0 {
		return ""
	}
	return condition.Values[0]
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}

// hrefID parses the trailing id of an href such as /api/v3/statuses/7.
func hrefID(href string) (int, error) {
	id, err := strconv.Atoi(path.Base(strings.TrimRight(href, "/")))
	if err != nil {
		return 0, fmt.Errorf("cannot resolve href %q", href)
	}
	return id, nil
}

type linkValue struct {
	Href *string `json:"href"`
}

// bodyLinks holds the _links of a request body. A key that is present
// with a null href is kept with a nil Href.
type bodyLinks map[string]linkValue

func (links bodyLinks) id(name string) (*int, bool, error) {
	l, ok := links[name]
	if !ok {
		return nil, false, nil
	}
	if l.Href == nil {
		return nil, true, nil
	}
	id, err := hrefID(*l.Href)
	if err != nil {
		return nil, true, err
	}
	return &id, true, nil
}

type formattableBody struct {
	Format string `json:"format"`
	Raw    string `json:"raw"`
}

func decodeRequest(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("request body is not valid JSON: %w", err)
	}
	return nil
}
