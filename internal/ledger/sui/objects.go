package sui

import (
	"context"
	"fmt"

	"github.com/louisbranch/formledger/internal/ledger"
)

var objectOptions = map[string]bool{
	"showType":    true,
	"showOwner":   true,
	"showContent": true,
}

// GetObject fetches an object with its type, owner and Move fields.
func (c *Client) GetObject(ctx context.Context, id string) (ledger.Object, bool, error) {
	var resp objectResponse
	if err := c.call(ctx, &resp, "sui_getObject", id, objectOptions); err != nil {
		return ledger.Object{}, false, err
	}
	if resp.Error != nil || resp.Data == nil {
		if resp.Error != nil {
			c.logger.Debug("object unavailable", "object_id", id, "code", resp.Error.Code)
		}
		return ledger.Object{}, false, nil
	}
	obj, err := resp.Data.toObject()
	if err != nil {
		return ledger.Object{}, false, fmt.Errorf("sui_getObject: %w", err)
	}
	return obj, true, nil
}
