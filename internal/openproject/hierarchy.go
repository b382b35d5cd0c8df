package openproject

import (
	"context"
	"fmt"
)

// verificationPageSize bounds the children query used to confirm a parent
// change.
const verificationPageSize = 1000

// ParentChange is the outcome of a parent mutation. The PATCH response is
// not trusted on its own: Verified is set only when re-querying the
// affected parents agrees with the change.
type ParentChange struct {
	WorkPackage     *WorkPackage `json:"workPackage"`
	PreviousParent  *Ref         `json:"previousParent,omitempty"`
	Parent          *Ref         `json:"parent,omitempty"`
	Verified        bool         `json:"verified"`
	Inconsistencies []string     `json:"inconsistencies,omitempty"`
}

type parentPatch struct {
	LockVersion int             `json:"lockVersion"`
	Links       map[string]Link `json:"_links"`
}

// SetWorkPackageParent makes parentID the parent of id.
func (client *Client) SetWorkPackageParent(ctx context.Context, id, parentID int) (*ParentChange, error) {
	return client.changeParent(ctx, id, &parentID)
}

// RemoveWorkPackageParent unlinks id from its parent by sending an
// explicit null parent href.
func (client *Client) RemoveWorkPackageParent(ctx context.Context, id int) (*ParentChange, error) {
	return client.changeParent(ctx, id, nil)
}

func (client *Client) changeParent(ctx context.Context, id int, parentID *int) (*ParentChange, error) {
	current, err := client.GetWorkPackage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("changing parent of work package %d: %w", id, err)
	}

	link := NullLink()
	if parentID != nil {
		link = LinkTo(client.href("work_packages", *parentID))
	}
	updated, err := client.patchWorkPackage(ctx, id, parentPatch{
		LockVersion: current.LockVersion,
		Links:       map[string]Link{"parent": link},
	})
	if err != nil {
		return nil, err
	}

	change := &ParentChange{
		WorkPackage:    updated,
		PreviousParent: current.Parent,
		Parent:         updated.Parent,
	}
	client.verifyParent(ctx, change, id, parentID)
	return change, nil
}

// verifyParent re-reads the children of the new and previous parents.
// Failures to read are recorded as inconsistencies rather than returned:
// the write itself already succeeded.
func (client *Client) verifyParent(ctx context.Context, change *ParentChange, id int, parentID *int) {
	params := QueryParams{PageSize: intPtr(verificationPageSize)}

	if parentID != nil {
		listed, err := client.isChildOf(ctx, id, *parentID, params)
		switch {
		case err != nil:
			change.Inconsistencies = append(change.Inconsistencies, fmt.Sprintf("could not verify children of %d: %v", *parentID, err))
		case !listed:
			change.Inconsistencies = append(change.Inconsistencies, fmt.Sprintf("work package %d is not yet listed as a child of %d", id, *parentID))
		}
	}

	previous := change.PreviousParent
	if previous != nil && (parentID == nil || previous.ID != *parentID) {
		listed, err := client.isChildOf(ctx, id, previous.ID, params)
		switch {
		case err != nil:
			change.Inconsistencies = append(change.Inconsistencies, fmt.Sprintf("could not verify children of %d: %v", previous.ID, err))
		case listed:
			change.Inconsistencies = append(change.Inconsistencies, fmt.Sprintf("work package %d is still listed as a child of %d", id, previous.ID))
		}
	}

	if parentID == nil && change.Parent != nil {
		change.Inconsistencies = append(change.Inconsistencies, fmt.Sprintf("work package %d still reports parent %d", id, change.Parent.ID))
	}

	change.Verified = len(change.Inconsistencies) == 0
	if !change.Verified {
		client.logger.Warn("parent change not confirmed by backend", "work_package_id", id, "inconsistencies", change.Inconsistencies)
	}
}

func (client *Client) isChildOf(ctx context.Context, id, parentID int, params QueryParams) (bool, error) {
	children, err := client.GetWorkPackageChildren(ctx, parentID, params)
	if err != nil {
		return false, err
	}
	for _, child := range children.Elements {
		if child.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func intPtr(v int) *int {
	return &v
}
