package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/ganot/openproject-mcp/internal/openproject"
)

const defaultSearchLimit = 10

var searchTypes = []string{"projects", "work_packages", "users"}

// Projects

func (h *Handler) getProjects(ctx context.Context, p GetProjectsParams) (string, error) {
	result, err := h.services.Projects.GetProjects(ctx, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, "projects", projectLine), nil
}

func (h *Handler) getProject(ctx context.Context, p IDParams) (string, error) {
	project, err := h.services.Projects.GetProject(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatProject("Project Details:", project), nil
}

func (h *Handler) createProject(ctx context.Context, p CreateProjectParams) (string, error) {
	project, err := h.services.Projects.CreateProject(ctx, openproject.ProjectCreate{
		Name:        p.Name,
		Identifier:  p.Identifier,
		Description: p.Description,
		Public:      p.Public,
		ParentID:    p.ParentID,
	})
	if err != nil {
		return "", err
	}
	return formatProject("Project created successfully:", project), nil
}

func (h *Handler) updateProject(ctx context.Context, p UpdateProjectParams) (string, error) {
	project, err := h.services.Projects.UpdateProject(ctx, p.ID, openproject.ProjectUpdate{
		Name:        p.Name,
		Description: p.Description,
		Public:      p.Public,
		Active:      p.Active,
	})
	if err != nil {
		return "", err
	}
	return formatProject("Project updated successfully:", project), nil
}

func (h *Handler) deleteProject(ctx context.Context, p IDParams) (string, error) {
	if err := h.services.Projects.DeleteProject(ctx, p.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Project with ID %d has been deleted successfully.", p.ID), nil
}

// Work packages

func (h *Handler) getWorkPackages(ctx context.Context, p GetWorkPackagesParams) (string, error) {
	var (
		result *openproject.Collection[openproject.WorkPackage]
		err    error
	)
	if p.ProjectID != nil {
		result, err = h.services.WorkPackages.GetProjectWorkPackages(ctx, *p.ProjectID, p.query())
	} else {
		result, err = h.services.WorkPackages.GetWorkPackages(ctx, p.query())
	}
	if err != nil {
		return "", err
	}
	return formatList(result, "work packages", workPackageLine), nil
}

func (h *Handler) getWorkPackage(ctx context.Context, p IDParams) (string, error) {
	wp, err := h.services.WorkPackages.GetWorkPackage(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatWorkPackage("Work Package Details:", wp), nil
}

func (h *Handler) createWorkPackage(ctx context.Context, p CreateWorkPackageParams) (string, error) {
	wp, err := h.services.WorkPackages.CreateWorkPackage(ctx, p.create())
	if err != nil {
		return "", err
	}
	return formatWorkPackage("Work package created successfully:", wp), nil
}

func (h *Handler) createTask(ctx context.Context, p CreateWorkPackageParams) (string, error) {
	wp, err := h.services.WorkPackages.CreateTask(ctx, p.create())
	if err != nil {
		return "", err
	}
	return formatWorkPackage("Task created successfully:", wp), nil
}

func (h *Handler) updateWorkPackage(ctx context.Context, p UpdateWorkPackageParams) (string, error) {
	wp, err := h.services.WorkPackages.UpdateWorkPackage(ctx, p.ID, openproject.WorkPackageUpdate{
		Subject:        p.Subject,
		Description:    p.Description,
		StartDate:      p.StartDate,
		DueDate:        p.DueDate,
		EstimatedTime:  p.EstimatedTime,
		PercentageDone: p.PercentageDone,
		StatusID:       p.StatusID,
		AssigneeID:     p.AssigneeID,
		PriorityID:     p.PriorityID,
	})
	if err != nil {
		return "", err
	}
	return formatWorkPackage("Work package updated successfully:", wp), nil
}

func (h *Handler) setWorkPackageStatus(ctx context.Context, p SetWorkPackageStatusParams) (string, error) {
	wp, err := h.services.WorkPackages.SetWorkPackageStatus(ctx, p.ID, p.StatusID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Work package status updated successfully:\n\nSubject: %s\nID: %d\nStatus: %s\nUpdated: %s",
		wp.Subject, wp.ID, refName(wp.Status, "Unknown"), wp.UpdatedAt), nil
}

func (h *Handler) deleteWorkPackage(ctx context.Context, p IDParams) (string, error) {
	if err := h.services.WorkPackages.DeleteWorkPackage(ctx, p.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Work package with ID %d has been deleted successfully.", p.ID), nil
}

// Hierarchy

func (h *Handler) setWorkPackageParent(ctx context.Context, p SetWorkPackageParentParams) (string, error) {
	if p.ID == p.ParentID {
		return "", &ValidationError{Field: "parentId", Reason: "a work package cannot be its own parent"}
	}
	change, err := h.services.WorkPackages.SetWorkPackageParent(ctx, p.ID, p.ParentID)
	if err != nil {
		return "", err
	}
	return formatParentChange("Work package parent set:", change), nil
}

func (h *Handler) removeWorkPackageParent(ctx context.Context, p IDParams) (string, error) {
	change, err := h.services.WorkPackages.RemoveWorkPackageParent(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatParentChange("Work package parent removed:", change), nil
}

func (h *Handler) getWorkPackageChildren(ctx context.Context, p GetWorkPackageChildrenParams) (string, error) {
	result, err := h.services.WorkPackages.GetWorkPackageChildren(ctx, p.ID, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, fmt.Sprintf("child work packages of %d", p.ID), workPackageLine), nil
}

// Search

func (h *Handler) search(ctx context.Context, p SearchParams) (string, error) {
	limit := defaultSearchLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	params := openproject.QueryParams{PageSize: &limit}
	header := fmt.Sprintf("Search results for %q in %s:\n\n", p.Query, p.Type)

	switch p.Type {
	case "projects":
		result, err := h.services.Projects.SearchProjects(ctx, p.Query, params)
		if err != nil {
			return "", err
		}
		return header + formatList(result, "results", projectLine), nil
	case "work_packages":
		result, err := h.services.WorkPackages.SearchWorkPackages(ctx, p.Query, params)
		if err != nil {
			return "", err
		}
		return header + formatList(result, "results", func(wp openproject.WorkPackage) string {
			return fmt.Sprintf("%s (ID: %d) - Status: %s", wp.Subject, wp.ID, refName(wp.Status, "Unknown"))
		}), nil
	case "users":
		result, err := h.services.Users.SearchUsers(ctx, p.Query, params)
		if err != nil {
			return "", err
		}
		return header + formatList(result, "results", func(u openproject.User) string {
			return fmt.Sprintf("%s (ID: %d) - %s", u.Name, u.ID, or(u.Email, "no email"))
		}), nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported search type %q", p.Type)}
	}
}

// Users

func (h *Handler) getUsers(ctx context.Context, p GetUsersParams) (string, error) {
	result, err := h.services.Users.GetUsers(ctx, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, "users", userLine), nil
}

func (h *Handler) getUser(ctx context.Context, p IDParams) (string, error) {
	user, err := h.services.Users.GetUser(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatUser("User Details:", user), nil
}

func (h *Handler) getCurrentUser(ctx context.Context, _ NoParams) (string, error) {
	user, err := h.services.Users.GetCurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return formatUser("Current User Details:", user), nil
}

// Reference data

func (h *Handler) getStatuses(ctx context.Context, p GetStatusesParams) (string, error) {
	result, err := h.services.Reference.GetStatuses(ctx, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, "statuses", statusLine), nil
}

func (h *Handler) getTypes(ctx context.Context, p GetTypesParams) (string, error) {
	result, err := h.services.Reference.GetTypes(ctx, p.ProjectID)
	if err != nil {
		return "", err
	}
	return formatList(result, "types", typeLine), nil
}

func (h *Handler) getPriorities(ctx context.Context, _ NoParams) (string, error) {
	result, err := h.services.Reference.GetPriorities(ctx)
	if err != nil {
		return "", err
	}
	return formatList(result, "priorities", priorityLine), nil
}

func (h *Handler) getRoles(ctx context.Context, p GetRolesParams) (string, error) {
	result, err := h.services.Reference.GetRoles(ctx, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, "roles", roleLine), nil
}

func (h *Handler) getRole(ctx context.Context, p IDParams) (string, error) {
	role, err := h.services.Reference.GetRole(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return newDetails("Role Details:").field("Name", role.Name).field("ID", role.ID).String(), nil
}

// Time entries

func (h *Handler) getTimeEntries(ctx context.Context, p GetTimeEntriesParams) (string, error) {
	var filters []openproject.Filter
	if p.ProjectID != nil {
		filters = append(filters, openproject.Equals("project", *p.ProjectID))
	}
	if p.WorkPackageID != nil {
		filters = append(filters, openproject.Equals("work_package", *p.WorkPackageID))
	}
	if p.UserID != nil {
		filters = append(filters, openproject.Equals("user", *p.UserID))
	}
	params, err := p.query().WithFilters(filters...)
	if err != nil {
		return "", err
	}
	result, err := h.services.TimeEntries.GetTimeEntries(ctx, params)
	if err != nil {
		return "", err
	}
	return formatList(result, "time entries", timeEntryLine), nil
}

func (h *Handler) getTimeEntry(ctx context.Context, p IDParams) (string, error) {
	entry, err := h.services.TimeEntries.GetTimeEntry(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatTimeEntry("Time Entry Details:", entry), nil
}

func (h *Handler) createTimeEntry(ctx context.Context, p CreateTimeEntryParams) (string, error) {
	spentOn := p.SpentOn
	if spentOn == "" {
		spentOn = h.now().Format(time.DateOnly)
	}
	entry, err := h.services.TimeEntries.CreateTimeEntry(ctx, openproject.TimeEntryCreate{
		ProjectID:     p.ProjectID,
		ActivityID:    p.ActivityID,
		WorkPackageID: p.WorkPackageID,
		Hours:         p.Hours,
		Comment:       p.Comment,
		SpentOn:       spentOn,
	})
	if err != nil {
		return "", err
	}
	return formatTimeEntry("Time entry created successfully:", entry), nil
}

func (h *Handler) updateTimeEntry(ctx context.Context, p UpdateTimeEntryParams) (string, error) {
	entry, err := h.services.TimeEntries.UpdateTimeEntry(ctx, p.ID, openproject.TimeEntryUpdate{
		ActivityID: p.ActivityID,
		Hours:      p.Hours,
		Comment:    p.Comment,
		SpentOn:    p.SpentOn,
	})
	if err != nil {
		return "", err
	}
	return formatTimeEntry("Time entry updated successfully:", entry), nil
}

func (h *Handler) deleteTimeEntry(ctx context.Context, p IDParams) (string, error) {
	if err := h.services.TimeEntries.DeleteTimeEntry(ctx, p.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Time entry with ID %d has been deleted successfully.", p.ID), nil
}

// Boards

func (h *Handler) getBoards(ctx context.Context, p GetBoardsParams) (string, error) {
	result, err := h.services.Boards.GetBoards(ctx, p.ProjectID, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, "boards", boardLine), nil
}

func (h *Handler) getBoard(ctx context.Context, p IDParams) (string, error) {
	board, err := h.services.Boards.GetBoard(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatBoard("Board Details:", board), nil
}

func (h *Handler) createBoard(ctx context.Context, p CreateBoardParams) (string, error) {
	board, err := h.services.Boards.CreateBoard(ctx, openproject.BoardCreate{
		ProjectID:   p.ProjectID,
		Name:        p.Name,
		Description: p.Description,
		RowCount:    p.RowCount,
		ColumnCount: p.ColumnCount,
	})
	if err != nil {
		return "", err
	}
	return formatBoard("Board created successfully:", board), nil
}

func (h *Handler) updateBoard(ctx context.Context, p UpdateBoardParams) (string, error) {
	board, err := h.services.Boards.UpdateBoard(ctx, p.ID, openproject.BoardUpdate{
		Name:        p.Name,
		Description: p.Description,
		RowCount:    p.RowCount,
		ColumnCount: p.ColumnCount,
	})
	if err != nil {
		return "", err
	}
	return formatBoard("Board updated successfully:", board), nil
}

func (h *Handler) deleteBoard(ctx context.Context, p IDParams) (string, error) {
	if err := h.services.Boards.DeleteBoard(ctx, p.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Board with ID %d has been deleted successfully.", p.ID), nil
}

func (h *Handler) addBoardWidget(ctx context.Context, p AddBoardWidgetParams) (string, error) {
	options := map[string]any{}
	for key, value := range p.Options {
		options[key] = value
	}
	if p.QueryID != nil {
		options["queryId"] = *p.QueryID
	}
	board, err := h.services.Boards.AddBoardWidget(ctx, p.BoardID, openproject.Widget{
		Identifier:  p.Identifier,
		StartRow:    p.StartRow,
		EndRow:      p.EndRow,
		StartColumn: p.StartColumn,
		EndColumn:   p.EndColumn,
		Options:     options,
	})
	if err != nil {
		return "", err
	}
	return formatBoard("Widget added successfully:", board), nil
}

func (h *Handler) removeBoardWidget(ctx context.Context, p RemoveBoardWidgetParams) (string, error) {
	board, err := h.services.Boards.RemoveBoardWidget(ctx, p.BoardID, p.WidgetID)
	if err != nil {
		return "", err
	}
	return formatBoard("Widget removed successfully:", board), nil
}

// Memberships

func (h *Handler) getMemberships(ctx context.Context, p GetMembershipsParams) (string, error) {
	result, err := h.services.Memberships.GetMemberships(ctx, p.ProjectID, p.query())
	if err != nil {
		return "", err
	}
	return formatList(result, "memberships", membershipLine), nil
}

func (h *Handler) getMembership(ctx context.Context, p IDParams) (string, error) {
	membership, err := h.services.Memberships.GetMembership(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return formatMembership("Membership Details:", membership), nil
}

func (h *Handler) createMembership(ctx context.Context, p CreateMembershipParams) (string, error) {
	membership, err := h.services.Memberships.CreateMembership(ctx, p.ProjectID, p.UserID, p.RoleIDs)
	if err != nil {
		return "", err
	}
	return formatMembership("Membership created successfully:", membership), nil
}

func (h *Handler) updateMembership(ctx context.Context, p UpdateMembershipParams) (string, error) {
	membership, err := h.services.Memberships.UpdateMembership(ctx, p.ID, p.RoleIDs)
	if err != nil {
		return "", err
	}
	return formatMembership("Membership updated successfully:", membership), nil
}

func (h *Handler) deleteMembership(ctx context.Context, p IDParams) (string, error) {
	if err := h.services.Memberships.DeleteMembership(ctx, p.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Membership with ID %d has been deleted successfully.", p.ID), nil
}

// Attachments

func (h *Handler) getAttachments(ctx context.Context, p GetAttachmentsParams) (string, error) {
	result, err := h.services.WorkPackages.GetAttachments(ctx, p.WorkPackageID)
	if err != nil {
		return "", err
	}
	return formatList(result, fmt.Sprintf("attachments on work package %d", p.WorkPackageID), attachmentLine), nil
}

// Utilities

func (h *Handler) testConnection(ctx context.Context, _ NoParams) (string, error) {
	if err := h.services.System.TestConnection(ctx); err != nil {
		return "", err
	}
	return "Connection to OpenProject API successful!", nil
}

func (h *Handler) getAPIInfo(ctx context.Context, _ NoParams) (string, error) {
	info, err := h.services.System.GetAPIInfo(ctx)
	if err != nil {
		return "", err
	}
	return formatAPIInfo(info), nil
}
