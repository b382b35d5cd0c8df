package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

type toolSpec struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Run         func(ctx context.Context, args json.RawMessage) (string, error)
}

const datePattern = `^\d{4}-\d{2}-\d{2}$`

// buildToolCatalog returns all available MCP tools
func buildToolCatalog(h *Handler) []toolSpec {
	return []toolSpec{
		// Projects
		{
			Name:        "get_projects",
			Description: "Get a list of projects from OpenProject",
			Schema:      object(nil, listProperties(nil)),
			Run:         bind(h.getProjects),
		},
		{
			Name:        "get_project",
			Description: "Get a specific project by ID",
			Schema:      object([]string{"id"}, props{"id": id("Project ID")}),
			Run:         bind(h.getProject),
		},
		{
			Name:        "create_project",
			Description: "Create a new project in OpenProject",
			Schema: object([]string{"name", "identifier"}, props{
				"name":        nonEmpty("Project name"),
				"identifier":  nonEmpty("Project identifier (unique, lowercase, used in URLs)"),
				"description": str("Project description"),
				"public":      boolean("Whether the project is public"),
				"parentId":    id("Parent project ID"),
			}),
			Run: bind(h.createProject),
		},
		{
			Name:        "update_project",
			Description: "Update an existing project",
			Schema: object([]string{"id"}, props{
				"id":          id("Project ID"),
				"name":        nonEmpty("Project name"),
				"description": str("Project description"),
				"public":      boolean("Whether the project is public"),
				"active":      boolean("Whether the project is active"),
			}),
			Run: bind(h.updateProject),
		},
		{
			Name:        "delete_project",
			Description: "Delete a project from OpenProject",
			Schema:      object([]string{"id"}, props{"id": id("Project ID")}),
			Run:         bind(h.deleteProject),
		},

		// Work packages
		{
			Name:        "get_work_packages",
			Description: "Get a list of work packages from OpenProject",
			Schema:      object(nil, listProperties(props{"projectId": id("Only work packages of this project")})),
			Run:         bind(h.getWorkPackages),
		},
		{
			Name:        "get_work_package",
			Description: "Get a specific work package by ID",
			Schema:      object([]string{"id"}, props{"id": id("Work package ID")}),
			Run:         bind(h.getWorkPackage),
		},
		{
			Name:        "create_work_package",
			Description: "Create a new work package in OpenProject",
			Schema:      object([]string{"subject", "projectId", "typeId"}, workPackageCreateProperties(true)),
			Run:         bind(h.createWorkPackage),
		},
		{
			Name:        "create_task",
			Description: "Create a new task in OpenProject (the type is set to the project's Task type)",
			Schema:      object([]string{"subject", "projectId"}, workPackageCreateProperties(false)),
			Run:         bind(h.createTask),
		},
		{
			Name:        "update_work_package",
			Description: "Update an existing work package. The current lockVersion is read right before the update",
			Schema: object([]string{"id"}, props{
				"id":             id("Work package ID"),
				"subject":        nonEmpty("Work package subject/title"),
				"description":    str("Work package description (plain text)"),
				"statusId":       id("Status ID"),
				"priorityId":     id("Priority ID"),
				"assigneeId":     id("Assignee user ID"),
				"startDate":      date("Start date (YYYY-MM-DD)"),
				"dueDate":        date("Due date (YYYY-MM-DD)"),
				"estimatedTime":  str(`Estimated time as ISO 8601 duration (e.g. "PT8H")`),
				"percentageDone": percentage("Percentage done (0-100)"),
			}),
			Run: bind(h.updateWorkPackage),
		},
		{
			Name:        "set_work_package_status",
			Description: "Set the status of a work package",
			Schema: object([]string{"id", "statusId"}, props{
				"id":       id("Work package ID"),
				"statusId": id("Status ID"),
			}),
			Run: bind(h.setWorkPackageStatus),
		},
		{
			Name:        "delete_work_package",
			Description: "Delete a work package from OpenProject",
			Schema:      object([]string{"id"}, props{"id": id("Work package ID")}),
			Run:         bind(h.deleteWorkPackage),
		},

		// Hierarchy
		{
			Name:        "set_work_package_parent",
			Description: "Set the parent of a work package. The change is verified by re-reading the affected parents",
			Schema: object([]string{"id", "parentId"}, props{
				"id":       id("Work package ID (child)"),
				"parentId": id("Parent work package ID"),
			}),
			Run: bind(h.setWorkPackageParent),
		},
		{
			Name:        "remove_work_package_parent",
			Description: "Remove the parent relationship from a work package",
			Schema:      object([]string{"id"}, props{"id": id("Work package ID")}),
			Run:         bind(h.removeWorkPackageParent),
		},
		{
			Name:        "get_work_package_children",
			Description: "Get the child work packages of a parent work package",
			Schema:      object([]string{"id"}, listProperties(props{"id": id("Parent work package ID")})),
			Run:         bind(h.getWorkPackageChildren),
		},

		// Search
		{
			Name:        "search",
			Description: "Search for projects, work packages, or users by name",
			Schema: object([]string{"query", "type"}, props{
				"query": nonEmpty("Search query"),
				"type":  enum("Type of items to search for", searchTypes...),
				"limit": positive("Maximum number of results (default: 10)"),
			}),
			Run: bind(h.search),
		},

		// Users
		{
			Name:        "get_users",
			Description: "Get a list of users from OpenProject",
			Schema:      object(nil, listProperties(nil)),
			Run:         bind(h.getUsers),
		},
		{
			Name:        "get_user",
			Description: "Get a specific user by ID",
			Schema:      object([]string{"id"}, props{"id": id("User ID")}),
			Run:         bind(h.getUser),
		},
		{
			Name:        "get_current_user",
			Description: "Get information about the current authenticated user",
			Schema:      object(nil, nil),
			Run:         bind(h.getCurrentUser),
		},

		// Reference data
		{
			Name:        "get_statuses",
			Description: "Get the available work package statuses",
			Schema:      object(nil, listProperties(nil)),
			Run:         bind(h.getStatuses),
		},
		{
			Name:        "get_types",
			Description: "Get the available work package types, optionally those enabled in one project",
			Schema:      object(nil, props{"projectId": id("Project ID")}),
			Run:         bind(h.getTypes),
		},
		{
			Name:        "get_priorities",
			Description: "Get the available work package priorities",
			Schema:      object(nil, nil),
			Run:         bind(h.getPriorities),
		},
		{
			Name:        "get_roles",
			Description: "Get a list of available roles from OpenProject",
			Schema:      object(nil, listProperties(nil)),
			Run:         bind(h.getRoles),
		},
		{
			Name:        "get_role",
			Description: "Get a specific role by ID",
			Schema:      object([]string{"id"}, props{"id": id("Role ID")}),
			Run:         bind(h.getRole),
		},

		// Time entries
		{
			Name:        "get_time_entries",
			Description: "Get a list of time entries from OpenProject",
			Schema: object(nil, listProperties(props{
				"workPackageId": id("Filter by work package ID"),
				"projectId":     id("Filter by project ID"),
				"userId":        id("Filter by user ID"),
			})),
			Run: bind(h.getTimeEntries),
		},
		{
			Name:        "get_time_entry",
			Description: "Get a specific time entry by ID",
			Schema:      object([]string{"id"}, props{"id": id("Time entry ID")}),
			Run:         bind(h.getTimeEntry),
		},
		{
			Name:        "create_time_entry",
			Description: "Log time in OpenProject",
			Schema: object([]string{"projectId", "activityId", "hours"}, props{
				"workPackageId": id("Work package ID (optional)"),
				"projectId":     id("Project ID"),
				"activityId":    id("Activity ID"),
				"hours":         nonEmpty(`Hours spent (e.g. "8.5" or "PT8H30M")`),
				"comment":       str("Comment/description"),
				"spentOn":       date("Date spent on (YYYY-MM-DD, defaults to today)"),
			}),
			Run: bind(h.createTimeEntry),
		},
		{
			Name:        "update_time_entry",
			Description: "Update an existing time entry",
			Schema: object([]string{"id"}, props{
				"id":         id("Time entry ID"),
				"activityId": id("Activity ID"),
				"hours":      nonEmpty(`Hours spent (e.g. "8.5" or "PT8H30M")`),
				"comment":    str("Comment/description"),
				"spentOn":    date("Date spent on (YYYY-MM-DD)"),
			}),
			Run: bind(h.updateTimeEntry),
		},
		{
			Name:        "delete_time_entry",
			Description: "Delete a time entry",
			Schema:      object([]string{"id"}, props{"id": id("Time entry ID")}),
			Run:         bind(h.deleteTimeEntry),
		},

		// Boards
		{
			Name:        "get_boards",
			Description: "Get a list of Kanban boards from OpenProject",
			Schema:      object(nil, listProperties(props{"projectId": id("Filter boards by project ID")})),
			Run:         bind(h.getBoards),
		},
		{
			Name:        "get_board",
			Description: "Get a specific Kanban board by ID",
			Schema:      object([]string{"id"}, props{"id": id("Board ID")}),
			Run:         bind(h.getBoard),
		},
		{
			Name:        "create_board",
			Description: "Create a new Kanban board in a project",
			Schema: object([]string{"projectId"}, props{
				"projectId":   id("Project ID where the board will be created"),
				"name":        str("Board name"),
				"description": str("Board description"),
				"rowCount":    positive("Number of rows in the board (default: 1)"),
				"columnCount": positive("Number of columns in the board (default: 3)"),
			}),
			Run: bind(h.createBoard),
		},
		{
			Name:        "update_board",
			Description: "Update an existing Kanban board",
			Schema: object([]string{"id"}, props{
				"id":          id("Board ID"),
				"name":        str("Board name"),
				"description": str("Board description"),
				"rowCount":    positive("Number of rows in the board"),
				"columnCount": positive("Number of columns in the board"),
			}),
			Run: bind(h.updateBoard),
		},
		{
			Name:        "delete_board",
			Description: "Delete a Kanban board",
			Schema:      object([]string{"id"}, props{"id": id("Board ID")}),
			Run:         bind(h.deleteBoard),
		},
		{
			Name:        "add_board_widget",
			Description: "Add a widget (column) to a Kanban board. Positions are 1-based, end positions exclusive",
			Schema: object([]string{"boardId", "identifier", "startRow", "endRow", "startColumn", "endColumn"}, props{
				"boardId":     id("Board ID"),
				"identifier":  nonEmpty(`Widget identifier (e.g. "work_package_query")`),
				"startRow":    positive("Starting row position"),
				"endRow":      positive("Ending row position"),
				"startColumn": positive("Starting column position"),
				"endColumn":   positive("Ending column position"),
				"queryId":     id("Query ID for filtering work packages"),
				"options":     freeObject("Additional widget options"),
			}),
			Run: bind(h.addBoardWidget),
		},
		{
			Name:        "remove_board_widget",
			Description: "Remove a widget from a Kanban board",
			Schema: object([]string{"boardId", "widgetId"}, props{
				"boardId":  id("Board ID"),
				"widgetId": id("Widget ID to remove"),
			}),
			Run: bind(h.removeBoardWidget),
		},

		// Memberships
		{
			Name:        "get_memberships",
			Description: "Get a list of project memberships from OpenProject",
			Schema:      object(nil, listProperties(props{"projectId": id("Filter by project ID")})),
			Run:         bind(h.getMemberships),
		},
		{
			Name:        "get_membership",
			Description: "Get a specific project membership by ID",
			Schema:      object([]string{"id"}, props{"id": id("Membership ID")}),
			Run:         bind(h.getMembership),
		},
		{
			Name:        "create_membership",
			Description: "Add a user to a project with the given roles",
			Schema: object([]string{"projectId", "userId", "roleIds"}, props{
				"projectId": id("Project ID"),
				"userId":    id("User ID to add to the project"),
				"roleIds":   idArray("Role IDs to assign to the user"),
			}),
			Run: bind(h.createMembership),
		},
		{
			Name:        "update_membership",
			Description: "Replace the roles of a project membership",
			Schema: object([]string{"id", "roleIds"}, props{
				"id":      id("Membership ID"),
				"roleIds": idArray("Role IDs to assign to the user"),
			}),
			Run: bind(h.updateMembership),
		},
		{
			Name:        "delete_membership",
			Description: "Remove a user from a project",
			Schema:      object([]string{"id"}, props{"id": id("Membership ID")}),
			Run:         bind(h.deleteMembership),
		},

		// Attachments
		{
			Name:        "get_attachments",
			Description: "Get all attachments of a work package",
			Schema:      object([]string{"workPackageId"}, props{"workPackageId": id("Work package ID")}),
			Run:         bind(h.getAttachments),
		},

		// Utilities
		{
			Name:        "test_connection",
			Description: "Test the connection to the OpenProject API",
			Schema:      object(nil, nil),
			Run:         bind(h.testConnection),
		},
		{
			Name:        "get_api_info",
			Description: "Get OpenProject API information and capabilities",
			Schema:      object(nil, nil),
			Run:         bind(h.getAPIInfo),
		},
	}
}

type props map[string]*jsonschema.Schema

func object(required []string, properties props) *jsonschema.Schema {
	if properties == nil {
		properties = props{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func listProperties(extra props) props {
	properties := props{
		"offset":   positive("Page number, starting at 1"),
		"pageSize": &jsonschema.Schema{Type: "integer", Description: "Number of items per page (default: 20)", Minimum: float(0)},
		"filters":  str(`JSON array of filters, e.g. [{"status":{"operator":"o","values":[]}}]`),
		"sortBy":   str(`JSON array of sort criteria, e.g. [["updatedAt","desc"]]`),
	}
	for name, schema := range extra {
		properties[name] = schema
	}
	return properties
}

func workPackageCreateProperties(withType bool) props {
	properties := props{
		"subject":       nonEmpty("Work package subject/title"),
		"description":   str("Work package description (plain text)"),
		"projectId":     id("Project ID"),
		"statusId":      id("Status ID"),
		"priorityId":    id("Priority ID"),
		"assigneeId":    id("Assignee user ID"),
		"parentId":      id("Parent work package ID"),
		"startDate":     date("Start date (YYYY-MM-DD)"),
		"dueDate":       date("Due date (YYYY-MM-DD)"),
		"estimatedTime": str(`Estimated time as ISO 8601 duration (e.g. "PT8H")`),
	}
	if withType {
		properties["typeId"] = id("Work package type ID")
	}
	return properties
}

func id(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: float(1)}
}

func positive(description string) *jsonschema.Schema {
	return id(description)
}

func percentage(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: float(0), Maximum: float(100)}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func nonEmpty(description string) *jsonschema.Schema {
	minLength := 1
	return &jsonschema.Schema{Type: "string", Description: description, MinLength: &minLength}
}

func date(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description, Pattern: datePattern}
}

func boolean(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func enum(description string, values ...string) *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "string", Description: description}
	for _, v := range values {
		schema.Enum = append(schema.Enum, v)
	}
	return schema
}

func idArray(description string) *jsonschema.Schema {
	minItems := 1
	return &jsonschema.Schema{
		Type:        "array",
		Description: description,
		Items:       &jsonschema.Schema{Type: "integer", Minimum: float(1)},
		MinItems:    &minItems,
	}
}

func freeObject(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: description}
}

func float(v float64) *float64 { return &v }
