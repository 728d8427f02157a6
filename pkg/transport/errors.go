// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
)

// ErrStopping is returned by a handler when an event is not admitted because
// the consumer is being stopped. The event has not been processed.
var ErrStopping = errors.New("consumer is stopping, event not admitted")

// CommitError is returned when the checkpoint of an event position fails,
// either because the broker rejected it or because it could not be reached.
type CommitError struct {
	PartitionID string
	Offset      int64
	Err         error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("committing offset %d for partition %s: %v", e.Offset, e.PartitionID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsCommitError returns true if the error on input is or wraps a
// *CommitError.
func IsCommitError(err error) bool {
	var commitErr *CommitError
	return errors.As(err, &commitErr)
}
