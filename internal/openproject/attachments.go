package openproject

import (
	"context"
	"fmt"
)

// Attachment is a file attached to a work package.
type Attachment struct {
	ID          int    `json:"id"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	Description string `json:"description,omitempty"`
	Author      *Ref   `json:"author,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type attachmentWire struct {
	ID          int         `json:"id"`
	FileName    string      `json:"fileName"`
	FileSize    int64       `json:"fileSize"`
	ContentType string      `json:"contentType"`
	Description Formattable `json:"description"`
	CreatedAt   string      `json:"createdAt"`
	Links       struct {
		Author *Link `json:"author"`
	} `json:"_links"`
}

func normalizeAttachment(wire attachmentWire) Attachment {
	return Attachment{
		ID:          wire.ID,
		FileName:    wire.FileName,
		FileSize:    wire.FileSize,
		ContentType: wire.ContentType,
		Description: wire.Description.Text(),
		Author:      NormalizeLink(wire.Links.Author),
		CreatedAt:   wire.CreatedAt,
	}
}

// GetAttachments lists the attachments of a work package.
func (client *Client) GetAttachments(ctx context.Context, workPackageID int) (*Collection[Attachment], error) {
	path := workPackagePath(workPackageID) + "/attachments"
	result, err := getCollection(ctx, client, path, QueryParams{}, normalizeAttachment)
	if err != nil {
		return nil, fmt.Errorf("listing attachments of work package %d: %w", workPackageID, err)
	}
	return result, nil
}
