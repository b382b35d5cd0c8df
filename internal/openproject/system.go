package openproject

import (
	"context"
	"encoding/json"
	"fmt"
)

// TestConnection checks that the API is reachable and accepts the
// configured credentials.
func (client *Client) TestConnection(ctx context.Context) error {
	if err := client.get(ctx, "/configuration", nil); err != nil {
		return fmt.Errorf("testing connection to %s: %w", client.baseURL, err)
	}
	return nil
}

// GetAPIInfo returns the API root document as received.
func (client *Client) GetAPIInfo(ctx context.Context) (json.RawMessage, error) {
	var info json.RawMessage
	if err := client.get(ctx, "", &info); err != nil {
		return nil, fmt.Errorf("getting API info: %w", err)
	}
	return info, nil
}
