package openproject

import (
	"context"
	"fmt"
)

const (
	defaultBoardRows    = 1
	defaultBoardColumns = 3
)

// Board is a Kanban board, stored by the API as a Grid scoped to a
// project's boards page.
type Board struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	RowCount    int      `json:"rowCount"`
	ColumnCount int      `json:"columnCount"`
	Widgets     []Widget `json:"widgets"`
	Scope       string   `json:"scope,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// Widget is one board column. Rows and columns are 1-based and the end
// positions are exclusive.
type Widget struct {
	ID          int            `json:"id,omitempty"`
	Identifier  string         `json:"identifier"`
	StartRow    int            `json:"startRow"`
	EndRow      int            `json:"endRow"`
	StartColumn int            `json:"startColumn"`
	EndColumn   int            `json:"endColumn"`
	Options     map[string]any `json:"options"`
}

// QueryID is the saved query the widget displays, if any.
func (w Widget) QueryID() (int, bool) {
	switch v := w.Options["queryId"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		if id, ok := ParseLinkID(v); ok {
			return id, true
		}
	}
	return 0, false
}

type gridWire struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	RowCount    int            `json:"rowCount"`
	ColumnCount int            `json:"columnCount"`
	Widgets     []Widget       `json:"widgets"`
	Options     map[string]any `json:"options"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	Links       struct {
		Scope *Link `json:"scope"`
	} `json:"_links"`
}

func normalizeBoard(wire gridWire) Board {
	board := Board{
		ID:          wire.ID,
		Name:        wire.Name,
		RowCount:    wire.RowCount,
		ColumnCount: wire.ColumnCount,
		Widgets:     wire.Widgets,
		CreatedAt:   wire.CreatedAt,
		UpdatedAt:   wire.UpdatedAt,
	}
	if board.Widgets == nil {
		board.Widgets = []Widget{}
	}
	if description, ok := wire.Options["description"].(string); ok {
		board.Description = description
	}
	if wire.Links.Scope != nil {
		board.Scope = stringValue(wire.Links.Scope.Href)
	}
	return board
}

// BoardScope is the grid scope of a project's boards.
func BoardScope(projectID int) string {
	return fmt.Sprintf("/projects/%d/boards", projectID)
}

// GetBoards lists boards, optionally only those of one project.
func (client *Client) GetBoards(ctx context.Context, projectID *int, params QueryParams) (*Collection[Board], error) {
	if projectID != nil {
		var err error
		params, err = params.WithFilters(Filter{Field: "scope", Operator: "=", Values: []string{BoardScope(*projectID)}})
		if err != nil {
			return nil, err
		}
	}
	result, err := getCollection(ctx, client, "/grids", params, normalizeBoard)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	return result, nil
}

// GetBoard fetches one board.
func (client *Client) GetBoard(ctx context.Context, id int) (*Board, error) {
	wire, err := client.getGrid(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting board %d: %w", id, err)
	}
	board := normalizeBoard(*wire)
	return &board, nil
}

// BoardCreate describes a new board. Zero row and column counts default
// to 1 and 3.
type BoardCreate struct {
	ProjectID   int
	Name        string
	Description *string
	RowCount    int
	ColumnCount int
}

// BoardUpdate is a partial board update.
type BoardUpdate struct {
	Name        *string
	Description *string
	RowCount    *int
	ColumnCount *int
}

type gridBody struct {
	Name        *string         `json:"name,omitempty"`
	RowCount    *int            `json:"rowCount,omitempty"`
	ColumnCount *int            `json:"columnCount,omitempty"`
	Widgets     *[]Widget       `json:"widgets,omitempty"`
	Options     map[string]any  `json:"options,omitempty"`
	Links       map[string]Link `json:"_links,omitempty"`
}

// CreateBoard creates an empty board in a project.
func (client *Client) CreateBoard(ctx context.Context, create BoardCreate) (*Board, error) {
	rows, columns := create.RowCount, create.ColumnCount
	if rows <= 0 {
		rows = defaultBoardRows
	}
	if columns <= 0 {
		columns = defaultBoardColumns
	}
	body := gridBody{
		RowCount:    &rows,
		ColumnCount: &columns,
		Widgets:     &[]Widget{},
		Links: map[string]Link{
			"scope": LinkTo(BoardScope(create.ProjectID)),
		},
	}
	if create.Name != "" {
		body.Name = &create.Name
	}
	if create.Description != nil {
		body.Options = map[string]any{"description": *create.Description}
	}

	var wire gridWire
	if err := client.post(ctx, "/grids", body, &wire); err != nil {
		return nil, fmt.Errorf("creating board in project %d: %w", create.ProjectID, err)
	}
	board := normalizeBoard(wire)
	return &board, nil
}

// UpdateBoard applies a partial update to a board. Changing the
// description reads the board first so other options are kept.
func (client *Client) UpdateBoard(ctx context.Context, id int, update BoardUpdate) (*Board, error) {
	body := gridBody{
		Name:        update.Name,
		RowCount:    update.RowCount,
		ColumnCount: update.ColumnCount,
	}
	if update.Description != nil {
		current, err := client.getGrid(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("updating board %d: %w", id, err)
		}
		body.Options = map[string]any{}
		for key, value := range current.Options {
			body.Options[key] = value
		}
		body.Options["description"] = *update.Description
	}
	return client.patchGrid(ctx, id, body)
}

// DeleteBoard deletes a board.
func (client *Client) DeleteBoard(ctx context.Context, id int) error {
	if err := client.delete(ctx, gridPath(id)); err != nil {
		return fmt.Errorf("deleting board %d: %w", id, err)
	}
	return nil
}

// AddBoardWidget appends a widget to a board.
func (client *Client) AddBoardWidget(ctx context.Context, boardID int, widget Widget) (*Board, error) {
	if widget.EndRow <= widget.StartRow || widget.EndColumn <= widget.StartColumn || widget.StartRow < 1 || widget.StartColumn < 1 {
		return nil, fmt.Errorf("adding widget to board %d: %w: widget rectangle rows %d-%d columns %d-%d is empty",
			boardID, ErrInvalidArgument, widget.StartRow, widget.EndRow, widget.StartColumn, widget.EndColumn)
	}
	if widget.Options == nil {
		widget.Options = map[string]any{}
	}

	current, err := client.getGrid(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("adding widget to board %d: %w", boardID, err)
	}
	widgets := append(append([]Widget{}, current.Widgets...), widget)
	return client.patchGrid(ctx, boardID, gridBody{Widgets: &widgets})
}

// RemoveBoardWidget removes the widget with widgetID from a board.
func (client *Client) RemoveBoardWidget(ctx context.Context, boardID, widgetID int) (*Board, error) {
	current, err := client.getGrid(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("removing widget from board %d: %w", boardID, err)
	}
	widgets := make([]Widget, 0, len(current.Widgets))
	for _, widget := range current.Widgets {
		if widget.ID != widgetID {
			widgets = append(widgets, widget)
		}
	}
	if len(widgets) == len(current.Widgets) {
		return nil, fmt.Errorf("removing widget %d from board %d: %w", widgetID, boardID, ErrNotFound)
	}
	return client.patchGrid(ctx, boardID, gridBody{Widgets: &widgets})
}

func (client *Client) getGrid(ctx context.Context, id int) (*gridWire, error) {
	var wire gridWire
	if err := client.get(ctx, gridPath(id), &wire); err != nil {
		return nil, err
	}
	return &wire, nil
}

func (client *Client) patchGrid(ctx context.Context, id int, body gridBody) (*Board, error) {
	var wire gridWire
	if err := client.patch(ctx, gridPath(id), body, &wire); err != nil {
		return nil, fmt.Errorf("updating board %d: %w", id, writeFailed(err))
	}
	board := normalizeBoard(wire)
	return &board, nil
}

func gridPath(id int) string {
	return fmt.Sprintf("/grids/%d", id)
}
