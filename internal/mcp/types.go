package mcp

import (
	"github.com/ganot/openproject-mcp/internal/openproject"
)

// ListParams are the collection options shared by the list tools.
type ListParams struct {
	Offset   *int   `json:"offset,omitempty"`
	PageSize *int   `json:"pageSize,omitempty"`
	Filters  string `json:"filters,omitempty"`
	SortBy   string `json:"sortBy,omitempty"`
}

func (p ListParams) query() openproject.QueryParams {
	return openproject.QueryParams{
		Offset:   p.Offset,
		PageSize: p.PageSize,
		Filters:  p.Filters,
		SortBy:   p.SortBy,
	}
}

// IDParams identifies a single resource.
type IDParams struct {
	ID int `json:"id"`
}

// Projects

type GetProjectsParams struct {
	ListParams
}

type CreateProjectParams struct {
	Name        string  `json:"name"`
	Identifier  string  `json:"identifier"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
	ParentID    *int    `json:"parentId,omitempty"`
}

type UpdateProjectParams struct {
	ID          int     `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// Work packages

type GetWorkPackagesParams struct {
	ListParams
	ProjectID *int `json:"projectId,omitempty"`
}

type CreateWorkPackageParams struct {
	Subject       string  `json:"subject"`
	Description   *string `json:"description,omitempty"`
	ProjectID     int     `json:"projectId"`
	TypeID        int     `json:"typeId"`
	StatusID      *int    `json:"statusId,omitempty"`
	PriorityID    *int    `json:"priorityId,omitempty"`
	AssigneeID    *int    `json:"assigneeId,omitempty"`
	ParentID      *int    `json:"parentId,omitempty"`
	StartDate     *string `json:"startDate,omitempty"`
	DueDate       *string `json:"dueDate,omitempty"`
	EstimatedTime *string `json:"estimatedTime,omitempty"`
}

func (p CreateWorkPackageParams) create() openproject.WorkPackageCreate {
	return openproject.WorkPackageCreate{
		Subject:       p.Subject,
		Description:   p.Description,
		ProjectID:     p.ProjectID,
		TypeID:        p.TypeID,
		StatusID:      p.StatusID,
		PriorityID:    p.PriorityID,
		AssigneeID:    p.AssigneeID,
		ParentID:      p.ParentID,
		StartDate:     p.StartDate,
		DueDate:       p.DueDate,
		EstimatedTime: p.EstimatedTime,
	}
}

type UpdateWorkPackageParams struct {
	ID             int     `json:"id"`
	Subject        *string `json:"subject,omitempty"`
	Description    *string `json:"description,omitempty"`
	StatusID       *int    `json:"statusId,omitempty"`
	PriorityID     *int    `json:"priorityId,omitempty"`
	AssigneeID     *int    `json:"assigneeId,omitempty"`
	StartDate      *string `json:"startDate,omitempty"`
	DueDate        *string `json:"dueDate,omitempty"`
	EstimatedTime  *string `json:"estimatedTime,omitempty"`
	PercentageDone *int    `json:"percentageDone,omitempty"`
}

type SetWorkPackageStatusParams struct {
	ID       int `json:"id"`
	StatusID int `json:"statusId"`
}

type SetWorkPackageParentParams struct {
	ID       int `json:"id"`
	ParentID int `json:"parentId"`
}

type GetWorkPackageChildrenParams struct {
	ID int `json:"id"`
	ListParams
}

// Search

type SearchParams struct {
	Query string `json:"query"`
	Type  string `json:"type"`
	Limit *int   `json:"limit,omitempty"`
}

// Users and reference data

type GetUsersParams struct {
	ListParams
}

type GetStatusesParams struct {
	ListParams
}

type GetTypesParams struct {
	ProjectID *int `json:"projectId,omitempty"`
}

type GetRolesParams struct {
	ListParams
}

// Time entries

type GetTimeEntriesParams struct {
	ListParams
	WorkPackageID *int `json:"workPackageId,omitempty"`
	ProjectID     *int `json:"projectId,omitempty"`
	UserID        *int `json:"userId,omitempty"`
}

type CreateTimeEntryParams struct {
	WorkPackageID *int    `json:"workPackageId,omitempty"`
	ProjectID     int     `json:"projectId"`
	ActivityID    int     `json:"activityId"`
	Hours         string  `json:"hours"`
	Comment       *string `json:"comment,omitempty"`
	SpentOn       string  `json:"spentOn,omitempty"`
}

type UpdateTimeEntryParams struct {
	ID         int     `json:"id"`
	ActivityID *int    `json:"activityId,omitempty"`
	Hours      *string `json:"hours,omitempty"`
	Comment    *string `json:"comment,omitempty"`
	SpentOn    *string `json:"spentOn,omitempty"`
}

// Boards

type GetBoardsParams struct {
	ListParams
	ProjectID *int `json:"projectId,omitempty"`
}

type CreateBoardParams struct {
	ProjectID   int     `json:"projectId"`
	Name        string  `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	RowCount    int     `json:"rowCount,omitempty"`
	ColumnCount int     `json:"columnCount,omitempty"`
}

type UpdateBoardParams struct {
	ID          int     `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	RowCount    *int    `json:"rowCount,omitempty"`
	ColumnCount *int    `json:"columnCount,omitempty"`
}

type AddBoardWidgetParams struct {
	BoardID     int            `json:"boardId"`
	Identifier  string         `json:"identifier"`
	StartRow    int            `json:"startRow"`
	EndRow      int            `json:"endRow"`
	StartColumn int            `json:"startColumn"`
	EndColumn   int            `json:"endColumn"`
	QueryID     *int           `json:"queryId,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

type RemoveBoardWidgetParams struct {
	BoardID  int `json:"boardId"`
	WidgetID int `json:"widgetId"`
}

// Memberships

type GetMembershipsParams struct {
	ListParams
	ProjectID *int `json:"projectId,omitempty"`
}

type CreateMembershipParams struct {
	ProjectID int   `json:"projectId"`
	UserID    int   `json:"userId"`
	RoleIDs   []int `json:"roleIds"`
}

type UpdateMembershipParams struct {
	ID      int   `json:"id"`
	RoleIDs []int `json:"roleIds"`
}

// Attachments

type GetAttachmentsParams struct {
	WorkPackageID int `json:"workPackageId"`
}

// NoParams is the argument shape of tools without inputs.
type NoParams struct{}
