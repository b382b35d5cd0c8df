package openproject

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// TimeEntry is a normalized time entry. Hours is an ISO 8601 duration
// such as PT8H30M.
type TimeEntry struct {
	ID          int    `json:"id"`
	Comment     string `json:"comment"`
	SpentOn     string `json:"spentOn"`
	Hours       string `json:"hours"`
	Project     *Ref   `json:"project,omitempty"`
	WorkPackage *Ref   `json:"workPackage,omitempty"`
	User        *Ref   `json:"user,omitempty"`
	Activity    *Ref   `json:"activity,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type timeEntryWire struct {
	ID          int         `json:"id"`
	Comment     Formattable `json:"comment"`
	SpentOn     string      `json:"spentOn"`
	Hours       string      `json:"hours"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
	Project     *flatRef    `json:"project"`
	WorkPackage *flatRef    `json:"workPackage"`
	User        *flatRef    `json:"user"`
	Activity    *flatRef    `json:"activity"`
	Links       struct {
		Project     *Link `json:"project"`
		WorkPackage *Link `json:"workPackage"`
		User        *Link `json:"user"`
		Activity    *Link `json:"activity"`
	} `json:"_links"`
}

func normalizeTimeEntry(wire timeEntryWire) TimeEntry {
	return TimeEntry{
		ID:          wire.ID,
		Comment:     wire.Comment.Text(),
		SpentOn:     wire.SpentOn,
		Hours:       wire.Hours,
		Project:     resolveRef(wire.Project, wire.Links.Project),
		WorkPackage: resolveRef(wire.WorkPackage, wire.Links.WorkPackage),
		User:        resolveRef(wire.User, wire.Links.User),
		Activity:    resolveRef(wire.Activity, wire.Links.Activity),
		CreatedAt:   wire.CreatedAt,
		UpdatedAt:   wire.UpdatedAt,
	}
}

// GetTimeEntries lists time entries.
func (client *Client) GetTimeEntries(ctx context.Context, params QueryParams) (*Collection[TimeEntry], error) {
	result, err := getCollection(ctx, client, "/time_entries", params, normalizeTimeEntry)
	if err != nil {
		return nil, fmt.Errorf("listing time entries: %w", err)
	}
	return result, nil
}

// GetTimeEntry fetches one time entry.
func (client *Client) GetTimeEntry(ctx context.Context, id int) (*TimeEntry, error) {
	var wire timeEntryWire
	if err := client.get(ctx, timeEntryPath(id), &wire); err != nil {
		return nil, fmt.Errorf("getting time entry %d: %w", id, err)
	}
	entry := normalizeTimeEntry(wire)
	return &entry, nil
}

// TimeEntryCreate describes a new time entry. Hours accepts a decimal
// number of hours ("8.5") or an ISO 8601 duration ("PT8H30M").
type TimeEntryCreate struct {
	ProjectID     int
	ActivityID    int
	WorkPackageID *int
	Hours         string
	Comment       *string
	SpentOn       string
}

// TimeEntryUpdate is a partial time entry update.
type TimeEntryUpdate struct {
	ActivityID *int
	Hours      *string
	Comment    *string
	SpentOn    *string
}

type timeEntryBody struct {
	Hours   string            `json:"hours,omitempty"`
	SpentOn string            `json:"spentOn,omitempty"`
	Comment *formattableInput `json:"comment,omitempty"`
	Links   map[string]Link   `json:"_links,omitempty"`
}

// CreateTimeEntry logs time on a project, optionally against a work
// package.
func (client *Client) CreateTimeEntry(ctx context.Context, create TimeEntryCreate) (*TimeEntry, error) {
	hours, err := HoursDuration(create.Hours)
	if err != nil {
		return nil, fmt.Errorf("creating time entry: %w", err)
	}
	body := timeEntryBody{
		Hours:   hours,
		SpentOn: create.SpentOn,
		Links: map[string]Link{
			"project":  LinkTo(client.href("projects", create.ProjectID)),
			"activity": LinkTo(client.href("time_entries/activities", create.ActivityID)),
		},
	}
	if create.Comment != nil {
		body.Comment = textInput(*create.Comment)
	}
	client.addLink(body.Links, "workPackage", "work_packages", create.WorkPackageID)

	var wire timeEntryWire
	if err := client.post(ctx, "/time_entries", body, &wire); err != nil {
		return nil, fmt.Errorf("creating time entry in project %d: %w", create.ProjectID, err)
	}
	entry := normalizeTimeEntry(wire)
	return &entry, nil
}

// UpdateTimeEntry applies a partial update to a time entry.
func (client *Client) UpdateTimeEntry(ctx context.Context, id int, update TimeEntryUpdate) (*TimeEntry, error) {
	var body timeEntryBody
	if update.Hours != nil {
		hours, err := HoursDuration(*update.Hours)
		if err != nil {
			return nil, fmt.Errorf("updating time entry %d: %w", id, err)
		}
		body.Hours = hours
	}
	if update.SpentOn != nil {
		body.SpentOn = *update.SpentOn
	}
	if update.Comment != nil {
		body.Comment = textInput(*update.Comment)
	}
	if update.ActivityID != nil {
		body.Links = map[string]Link{}
		client.addLink(body.Links, "activity", "time_entries/activities", update.ActivityID)
	}

	var wire timeEntryWire
	if err := client.patch(ctx, timeEntryPath(id), body, &wire); err != nil {
		return nil, fmt.Errorf("updating time entry %d: %w", id, err)
	}
	entry := normalizeTimeEntry(wire)
	return &entry, nil
}

// DeleteTimeEntry deletes a time entry.
func (client *Client) DeleteTimeEntry(ctx context.Context, id int) error {
	if err := client.delete(ctx, timeEntryPath(id)); err != nil {
		return fmt.Errorf("deleting time entry %d: %w", id, err)
	}
	return nil
}

var isoDurationPattern = regexp.MustCompile(`^P(\d+(\.\d+)?Y)?(\d+(\.\d+)?M)?(\d+(\.\d+)?W)?(\d+(\.\d+)?D)?(T(\d+(\.\d+)?H)?(\d+(\.\d+)?M)?(\d+(\.\d+)?S)?)?$`)

// HoursDuration converts a decimal hour count into an ISO 8601 duration.
// Values that already are a duration are returned upper-cased.
func HoursDuration(hours string) (string, error) {
	hours = strings.TrimSpace(hours)
	if upper := strings.ToUpper(hours); strings.HasPrefix(upper, "P") {
		if upper == "P" || strings.HasSuffix(upper, "T") || !isoDurationPattern.MatchString(upper) {
			return "", fmt.Errorf("%w: hours is not a valid ISO 8601 duration: %q", ErrInvalidArgument, hours)
		}
		return upper, nil
	}
	value, err := strconv.ParseFloat(hours, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return "", fmt.Errorf("%w: hours must be a positive number or an ISO 8601 duration, got %q", ErrInvalidArgument, hours)
	}
	return "PT" + strconv.FormatFloat(value, 'f', -1, 64) + "H", nil
}

func timeEntryPath(id int) string {
	return fmt.Sprintf("/time_entries/%d", id)
}
