package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ganot/openproject-mcp/internal/openproject"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	GetProjects(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.Project], error)
	GetProject(ctx context.Context, id int) (*openproject.Project, error)
	SearchProjects(ctx context.Context, query string, params openproject.QueryParams) (*openproject.Collection[openproject.Project], error)
	CreateProject(ctx context.Context, create openproject.ProjectCreate) (*openproject.Project, error)
	UpdateProject(ctx context.Context, id int, update openproject.ProjectUpdate) (*openproject.Project, error)
	DeleteProject(ctx context.Context, id int) error
}

// WorkPackageService defines work package operations needed by MCP.
type WorkPackageService interface {
	GetWorkPackages(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.WorkPackage], error)
	GetProjectWorkPackages(ctx context.Context, projectID int, params openproject.QueryParams) (*openproject.Collection[openproject.WorkPackage], error)
	GetWorkPackage(ctx context.Context, id int) (*openproject.WorkPackage, error)
	SearchWorkPackages(ctx context.Context, query string, params openproject.QueryParams) (*openproject.Collection[openproject.WorkPackage], error)
	GetWorkPackageChildren(ctx context.Context, parentID int, params openproject.QueryParams) (*openproject.Collection[openproject.WorkPackage], error)
	CreateWorkPackage(ctx context.Context, create openproject.WorkPackageCreate) (*openproject.WorkPackage, error)
	CreateTask(ctx context.Context, create openproject.WorkPackageCreate) (*openproject.WorkPackage, error)
	UpdateWorkPackage(ctx context.Context, id int, update openproject.WorkPackageUpdate) (*openproject.WorkPackage, error)
	SetWorkPackageStatus(ctx context.Context, id, statusID int) (*openproject.WorkPackage, error)
	DeleteWorkPackage(ctx context.Context, id int) error
	SetWorkPackageParent(ctx context.Context, id, parentID int) (*openproject.ParentChange, error)
	RemoveWorkPackageParent(ctx context.Context, id int) (*openproject.ParentChange, error)
	GetAttachments(ctx context.Context, workPackageID int) (*openproject.Collection[openproject.Attachment], error)
}

// UserService defines user operations needed by MCP.
type UserService interface {
	GetUsers(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.User], error)
	GetUser(ctx context.Context, id int) (*openproject.User, error)
	GetCurrentUser(ctx context.Context) (*openproject.User, error)
	SearchUsers(ctx context.Context, query string, params openproject.QueryParams) (*openproject.Collection[openproject.User], error)
}

// ReferenceService defines the lookup collections needed by MCP.
type ReferenceService interface {
	GetStatuses(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.Status], error)
	GetTypes(ctx context.Context, projectID *int) (*openproject.Collection[openproject.Type], error)
	GetPriorities(ctx context.Context) (*openproject.Collection[openproject.Priority], error)
	GetRoles(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.Role], error)
	GetRole(ctx context.Context, id int) (*openproject.Role, error)
}

// TimeEntryService defines time entry operations needed by MCP.
type TimeEntryService interface {
	GetTimeEntries(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.TimeEntry], error)
	GetTimeEntry(ctx context.Context, id int) (*openproject.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, create openproject.TimeEntryCreate) (*openproject.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, id int, update openproject.TimeEntryUpdate) (*openproject.TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id int) error
}

// BoardService defines board operations needed by MCP.
type BoardService interface {
	GetBoards(ctx context.Context, projectID *int, params openproject.QueryParams) (*openproject.Collection[openproject.Board], error)
	GetBoard(ctx context.Context, id int) (*openproject.Board, error)
	CreateBoard(ctx context.Context, create openproject.BoardCreate) (*openproject.Board, error)
	UpdateBoard(ctx context.Context, id int, update openproject.BoardUpdate) (*openproject.Board, error)
	DeleteBoard(ctx context.Context, id int) error
	AddBoardWidget(ctx context.Context, boardID int, widget openproject.Widget) (*openproject.Board, error)
	RemoveBoardWidget(ctx context.Context, boardID, widgetID int) (*openproject.Board, error)
}

// MembershipService defines membership operations needed by MCP.
type MembershipService interface {
	GetMemberships(ctx context.Context, projectID *int, params openproject.QueryParams) (*openproject.Collection[openproject.Membership], error)
	GetMembership(ctx context.Context, id int) (*openproject.Membership, error)
	CreateMembership(ctx context.Context, projectID, userID int, roleIDs []int) (*openproject.Membership, error)
	UpdateMembership(ctx context.Context, id int, roleIDs []int) (*openproject.Membership, error)
	DeleteMembership(ctx context.Context, id int) error
}

// SystemService defines the connection utilities needed by MCP.
type SystemService interface {
	TestConnection(ctx context.Context) error
	GetAPIInfo(ctx context.Context) (json.RawMessage, error)
}

// Services contains all backend services needed by MCP.
type Services struct {
	Projects     ProjectService
	WorkPackages WorkPackageService
	Users        UserService
	Reference    ReferenceService
	TimeEntries  TimeEntryService
	Boards       BoardService
	Memberships  MembershipService
	System       SystemService
}

// ServicesFromClient wires every service to one backend client.
func ServicesFromClient(client *openproject.Client) Services {
	return Services{
		Projects:     client,
		WorkPackages: client,
		Users:        client,
		Reference:    client,
		TimeEntries:  client,
		Boards:       client,
		Memberships:  client,
		System:       client,
	}
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Name          string
	Version       string
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger

	// ErrorHints overrides DefaultErrorHints when non-nil. An empty map
	// disables tool guidance.
	ErrorHints map[string]string
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "openproject-mcp"
	}
	if version == "" {
		version = "1.0.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    name,
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	handler := NewHandler(cfg.Services, HandlerOptions{
		Logger:     logger.With("transport", cfg.TransportMode),
		ErrorHints: cfg.ErrorHints,
	})
	registerTools(server, handler)

	return server
}

// registerTools exposes every catalog entry through the SDK. Arguments
// are passed through raw so Dispatch owns validation and error shaping.
func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, tool := range handler.Tools() {
		name := tool.Name
		server.AddTool(tool, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			return handler.Dispatch(ctx, name, args), nil
		})
	}
}
