package openproject

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// QueryParams are the collection query options understood by the API.
// Filters is an opaque JSON array of {field: {operator, values}} predicates
// and is passed through verbatim.
type QueryParams struct {
	Offset   *int
	PageSize *int
	Filters  string
	SortBy   string
	GroupBy  string
	ShowSums *bool
}

// Encode renders the present parameters as a query string, including the
// leading "?". Keys are emitted in a fixed order: offset, pageSize, filters,
// sortBy, groupBy, showSums.
func (params QueryParams) Encode() string {
	parts := make([]string, 0, 6)
	if params.Offset != nil {
		parts = append(parts, "offset="+strconv.Itoa(*params.Offset))
	}
	if params.PageSize != nil {
		parts = append(parts, "pageSize="+strconv.Itoa(*params.PageSize))
	}
	if params.Filters != "" {
		parts = append(parts, "filters="+url.QueryEscape(params.Filters))
	}
	if params.SortBy != "" {
		parts = append(parts, "sortBy="+url.QueryEscape(params.SortBy))
	}
	if params.GroupBy != "" {
		parts = append(parts, "groupBy="+url.QueryEscape(params.GroupBy))
	}
	if params.ShowSums != nil {
		parts = append(parts, "showSums="+strconv.FormatBool(*params.ShowSums))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// WithFilters returns a copy of params with the typed filters appended to
// any caller supplied filters.
func (params QueryParams) WithFilters(filters ...Filter) (QueryParams, error) {
	if len(filters) == 0 {
		return params, nil
	}
	merged, err := AppendFilters(params.Filters, filters...)
	if err != nil {
		return QueryParams{}, err
	}
	params.Filters = merged
	return params, nil
}

// Filter is a single filter predicate.
type Filter struct {
	Field    string
	Operator string
	Values   []string
}

type filterCondition struct {
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

func (f Filter) MarshalJSON() ([]byte, error) {
	values := f.Values
	if values == nil {
		values = []string{}
	}
	return json.Marshal(map[string]filterCondition{
		f.Field: {Operator: f.Operator, Values: values},
	})
}

// Equals matches a field against a numeric id.
func Equals(field string, id int) Filter {
	return Filter{Field: field, Operator: "=", Values: []string{strconv.Itoa(id)}}
}

// Contains matches a text field containing query.
func Contains(field, query string) Filter {
	return Filter{Field: field, Operator: "~", Values: []string{query}}
}

// EncodeFilters renders filters as the JSON array expected by the API.
func EncodeFilters(filters ...Filter) (string, error) {
	return AppendFilters("", filters...)
}

// AppendFilters adds filters to an existing JSON filter array. Existing
// elements are kept as-is without interpreting their contents.
func AppendFilters(existing string, filters ...Filter) (string, error) {
	var elements []json.RawMessage
	if strings.TrimSpace(existing) != "" {
		if err := json.Unmarshal([]byte(existing), &elements); err != nil {
			return "", fmt.Errorf("%w: filters must be a JSON array: %v", ErrInvalidArgument, err)
		}
	}
	for _, filter := range filters {
		encoded, err := json.Marshal(filter)
		if err != nil {
			return "", fmt.Errorf("encoding filter %q: %w", filter.Field, err)
		}
		elements = append(elements, encoded)
	}
	if elements == nil {
		elements = []json.RawMessage{}
	}
	data, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("encoding filters: %w", err)
	}
	return string(data), nil
}
