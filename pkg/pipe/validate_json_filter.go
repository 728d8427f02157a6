// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// ValidateJSONFilter short-circuits the pipe when the event payload is not
// valid JSON.
type ValidateJSONFilter struct{}

func NewValidateJSONFilter() *ValidateJSONFilter {
	return &ValidateJSONFilter{}
}

func (f *ValidateJSONFilter) Send(ctx context.Context, c *Context, next Pipe) error {
	if !gjson.ValidBytes(c.Event.Value) {
		return fmt.Errorf("%w: partition %s offset %d is not valid json", ErrMalformedPayload, c.Event.PartitionID, c.Event.Offset)
	}
	return next.Send(ctx, c)
}
