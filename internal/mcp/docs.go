package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `openproject-mcp exposes an OpenProject installation (API v3) as tools.

Resources: projects, work packages, users, time entries, Kanban boards, memberships.
Reference data (statuses, types, priorities, roles) supplies the IDs that relationship arguments expect.

Rules of engagement:
1) Discover IDs first: get_projects / search, then get_statuses, get_types, get_priorities as needed.
2) Updates are partial: pass only the fields you want to change.
3) Work package writes use optimistic locking. A CONFLICT error means someone else changed the
   work package; read it again and reapply your change.
4) WRITE_OUTCOME_UNKNOWN means the update may or may not have been applied. Read before retrying.
5) Parent changes are verified by re-reading the parents. An INCONSISTENT verification means the
   backend has not caught up yet; check again with get_work_package_children.

Docs:
- openproject://docs/index
- openproject://docs/filters
- openproject://docs/locking
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "openproject://docs/index",
		Name:        "docs_index",
		Title:       "openproject-mcp docs index",
		Description: "Entry point for agent-facing docs: which tools exist and what to read when.",
		Content: `# openproject-mcp: Agent Docs Index

## Quick start

1. ` + "`test_connection`" + ` if unsure whether the server is reachable.
2. ` + "`get_projects`" + ` or ` + "`search`" + ` to find a project ID.
3. ` + "`get_work_packages`" + ` with ` + "`projectId`" + ` to browse its work.
4. ` + "`get_statuses`" + ` / ` + "`get_types`" + ` / ` + "`get_priorities`" + ` before setting relationship IDs.
5. ` + "`update_work_package`" + ` with only the fields that change.

## Docs (read on demand)

- ` + "`openproject://docs/filters`" + ` - filter and sort syntax for the list tools.
- ` + "`openproject://docs/locking`" + ` - lockVersion, conflicts and ambiguous writes.

## Limitations

- Attachments can be listed but not uploaded.
- Paging uses ` + "`offset`" + ` as a 1-based page number, not an element offset.
`,
	},
	{
		URI:         "openproject://docs/filters",
		Name:        "docs_filters",
		Title:       "Filters and sorting",
		Description: "Syntax of the filters and sortBy arguments accepted by the list tools.",
		Content: `# Filters and sorting

The ` + "`filters`" + ` argument is a JSON array passed to OpenProject unchanged.
Each element maps one field to an operator and a list of string values:

` + "```json" + `
[{"status": {"operator": "o", "values": []}},
 {"assignee": {"operator": "=", "values": ["12"]}}]
` + "```" + `

Common operators:

| operator | meaning |
|---|---|
| ` + "`=`" + ` | equals any of the values |
| ` + "`!`" + ` | equals none of the values |
| ` + "`~`" + ` | contains text |
| ` + "`o`" + ` / ` + "`c`" + ` | open / closed (status only) |
| ` + "`<>d`" + ` | between two dates |

Dedicated arguments such as ` + "`projectId`" + ` on ` + "`get_time_entries`" + ` are added to
your filters, never replace them.

` + "`sortBy`" + ` is a JSON array of ` + "`[field, direction]`" + ` pairs, e.g. ` + "`[[\"updatedAt\",\"desc\"]]`" + `.
`,
	},
	{
		URI:         "openproject://docs/locking",
		Name:        "docs_locking",
		Title:       "Optimistic locking",
		Description: "How work package writes carry lockVersion and what CONFLICT and WRITE_OUTCOME_UNKNOWN mean.",
		Content: `# Optimistic locking

Every work package carries a ` + "`lockVersion`" + `. Each write sends the version it was based on;
OpenProject rejects the write when the stored version moved on.

The server reads the work package immediately before each update, so a conflict only happens
when someone else wrote in between.

## Error codes

- ` + "`CONFLICT`" + `: the write was rejected. Nothing changed. Read the work package, check the
  other change, and apply yours again.
- ` + "`WRITE_OUTCOME_UNKNOWN`" + `: the read succeeded but the write got no answer. It may have
  been applied. Read the work package before trying again.
- ` + "`NOT_FOUND`" + `: the work package does not exist; no write was sent.
- ` + "`TRANSPORT_ERROR`" + `: the server could not reach OpenProject at all. Nothing was
  written. Retrying only helps once the connection is back.

## Parent changes

` + "`set_work_package_parent`" + ` and ` + "`remove_work_package_parent`" + ` re-read the children of the
old and new parent after the write. The result says whether the backend already agrees.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
