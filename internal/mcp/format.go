package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ganot/openproject-mcp/internal/openproject"
)

const (
	noDescription = "No description"
	notSet        = "Not set"
)

// formatList renders "Found N <noun>:" followed by one line per element.
// A paging note is added when the page holds fewer elements than the total.
func formatList[T any](c *openproject.Collection[T], noun string, line func(T) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s:\n", c.Total, noun)
	for _, element := range c.Elements {
		b.WriteString("\n- ")
		b.WriteString(line(element))
	}
	if c.Count < c.Total {
		fmt.Fprintf(&b, "\n\nShowing %d of %d (page %d, page size %d).", c.Count, c.Total, c.Offset, c.PageSize)
	}
	return b.String()
}

type details struct {
	b strings.Builder
}

func newDetails(header string) *details {
	d := &details{}
	d.b.WriteString(header)
	d.b.WriteString("\n")
	return d
}

func (d *details) field(label string, value any) *details {
	fmt.Fprintf(&d.b, "\n%s: %v", label, value)
	return d
}

func (d *details) String() string {
	return d.b.String()
}

func or(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func refName(ref *openproject.Ref, fallback string) string {
	if ref == nil || ref.Name == "" {
		return fallback
	}
	return ref.Name
}

func refLabel(ref *openproject.Ref) string {
	if ref == nil {
		return "None"
	}
	return fmt.Sprintf("%s (ID: %d)", ref.Name, ref.ID)
}

// Projects

func projectLine(p openproject.Project) string {
	return fmt.Sprintf("%s (ID: %d) - %s", p.Name, p.ID, or(p.Description, noDescription))
}

func formatProject(header string, p *openproject.Project) string {
	d := newDetails(header).
		field("Name", p.Name).
		field("ID", p.ID).
		field("Identifier", p.Identifier).
		field("Description", or(p.Description, noDescription)).
		field("Status", or(p.Status, notSet)).
		field("Public", p.Public).
		field("Active", p.Active)
	if p.Parent != nil {
		d.field("Parent", refLabel(p.Parent))
	}
	return d.field("Created", p.CreatedAt).field("Updated", p.UpdatedAt).String()
}

// Work packages

func workPackageLine(wp openproject.WorkPackage) string {
	return fmt.Sprintf("%s (ID: %d) - Status: %s - Assignee: %s",
		wp.Subject, wp.ID, refName(wp.Status, "Unknown"), refName(wp.Assignee, "Unassigned"))
}

func formatWorkPackage(header string, wp *openproject.WorkPackage) string {
	d := newDetails(header).
		field("Subject", wp.Subject).
		field("ID", wp.ID).
		field("Description", or(wp.Description, noDescription)).
		field("Project", refName(wp.Project, "Unknown")).
		field("Type", refName(wp.Type, "Unknown")).
		field("Status", refName(wp.Status, "Unknown")).
		field("Priority", refName(wp.Priority, "No priority")).
		field("Assignee", refName(wp.Assignee, "Unassigned"))
	if wp.Parent != nil {
		d.field("Parent", refLabel(wp.Parent))
	}
	return d.
		field("Progress", strconv.Itoa(wp.PercentageDone)+"%").
		field("Start Date", or(wp.StartDate, notSet)).
		field("Due Date", or(wp.DueDate, notSet)).
		field("Estimated Time", or(wp.EstimatedTime, notSet)).
		field("Spent Time", or(wp.SpentTime, notSet)).
		field("Lock Version", wp.LockVersion).
		field("Created", wp.CreatedAt).
		field("Updated", wp.UpdatedAt).
		String()
}

func formatParentChange(header string, change *openproject.ParentChange) string {
	d := newDetails(header).
		field("Subject", change.WorkPackage.Subject).
		field("ID", change.WorkPackage.ID).
		field("Previous Parent", refLabel(change.PreviousParent)).
		field("Parent", refLabel(change.Parent))
	if change.Verified {
		return d.field("Verification", "confirmed by re-reading the parents").String()
	}
	d.field("Verification", "INCONSISTENT")
	for _, problem := range change.Inconsistencies {
		d.b.WriteString("\n- ")
		d.b.WriteString(problem)
	}
	return d.String()
}

// Users

func userLine(u openproject.User) string {
	return fmt.Sprintf("%s (ID: %d) - %s - Status: %s", u.Name, u.ID, or(u.Email, "no email"), u.Status)
}

func formatUser(header string, u *openproject.User) string {
	return newDetails(header).
		field("Name", u.Name).
		field("ID", u.ID).
		field("Login", u.Login).
		field("Email", u.Email).
		field("First Name", u.FirstName).
		field("Last Name", u.LastName).
		field("Admin", u.Admin).
		field("Status", u.Status).
		field("Language", u.Language).
		String()
}

// Reference data

func statusLine(s openproject.Status) string {
	line := fmt.Sprintf("%s (ID: %d)", s.Name, s.ID)
	if s.IsClosed {
		line += " [closed]"
	}
	if s.IsDefault {
		line += " [default]"
	}
	return line
}

func typeLine(t openproject.Type) string {
	line := fmt.Sprintf("%s (ID: %d)", t.Name, t.ID)
	if t.IsMilestone {
		line += " [milestone]"
	}
	if t.IsDefault {
		line += " [default]"
	}
	return line
}

func priorityLine(p openproject.Priority) string {
	line := fmt.Sprintf("%s (ID: %d)", p.Name, p.ID)
	if p.IsDefault {
		line += " [default]"
	}
	if !p.IsActive {
		line += " [inactive]"
	}
	return line
}

func roleLine(r openproject.Role) string {
	return fmt.Sprintf("%s (ID: %d)", r.Name, r.ID)
}

// Time entries

func timeEntryLine(e openproject.TimeEntry) string {
	return fmt.Sprintf("%s on %s - %s - %s (ID: %d)",
		e.Hours, e.SpentOn, refName(e.Activity, "Unknown activity"), or(e.Comment, "No comment"), e.ID)
}

func formatTimeEntry(header string, e *openproject.TimeEntry) string {
	d := newDetails(header).
		field("Hours", e.Hours).
		field("Date", e.SpentOn).
		field("Activity", refName(e.Activity, "Unknown activity")).
		field("Project", refName(e.Project, "Unknown"))
	if e.WorkPackage != nil {
		d.field("Work Package", refLabel(e.WorkPackage))
	}
	if e.User != nil {
		d.field("User", refName(e.User, "Unknown"))
	}
	return d.field("Comment", or(e.Comment, "No comment")).field("ID", e.ID).String()
}

// Boards

func boardLine(b openproject.Board) string {
	return fmt.Sprintf("%s (ID: %d) - %dx%d, %d widgets", or(b.Name, "Unnamed board"), b.ID, b.RowCount, b.ColumnCount, len(b.Widgets))
}

func formatBoard(header string, b *openproject.Board) string {
	d := newDetails(header).
		field("Name", or(b.Name, "Unnamed board")).
		field("ID", b.ID).
		field("Description", or(b.Description, noDescription)).
		field("Rows", b.RowCount).
		field("Columns", b.ColumnCount).
		field("Scope", or(b.Scope, notSet)).
		field("Widgets", len(b.Widgets))
	for _, w := range b.Widgets {
		fmt.Fprintf(&d.b, "\n- %s (ID: %d) rows %d-%d, columns %d-%d", w.Identifier, w.ID, w.StartRow, w.EndRow, w.StartColumn, w.EndColumn)
		if queryID, ok := w.QueryID(); ok {
			fmt.Fprintf(&d.b, ", query %d", queryID)
		}
	}
	return d.String()
}

// Memberships

func roleNames(roles []openproject.Ref) string {
	if len(roles) == 0 {
		return "no roles"
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}

func membershipLine(m openproject.Membership) string {
	return fmt.Sprintf("%s in %s - Roles: %s (ID: %d)",
		refName(m.Principal, "Unknown"), refName(m.Project, "Unknown"), roleNames(m.Roles), m.ID)
}

func formatMembership(header string, m *openproject.Membership) string {
	return newDetails(header).
		field("ID", m.ID).
		field("Project", refLabel(m.Project)).
		field("Principal", refLabel(m.Principal)).
		field("Roles", roleNames(m.Roles)).
		field("Created", m.CreatedAt).
		String()
}

// Attachments

func attachmentLine(a openproject.Attachment) string {
	return fmt.Sprintf("%s (ID: %d) - %s, %d bytes - %s",
		a.FileName, a.ID, or(a.ContentType, "unknown type"), a.FileSize, or(a.Description, noDescription))
}

// API info

func formatAPIInfo(info json.RawMessage) string {
	var indented bytes.Buffer
	if err := json.Indent(&indented, info, "", "  "); err != nil {
		return "OpenProject API Information:\n\n" + string(info)
	}
	return "OpenProject API Information:\n\n" + indented.String()
}
