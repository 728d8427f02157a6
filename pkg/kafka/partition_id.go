// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPartitionID = errors.New("invalid format for kafka partition id")

// PartitionID returns the identifier of a topic partition, in the format
// "topic/partition".
func PartitionID(topic string, partition int) string {
	return fmt.Sprintf("%s/%d", topic, partition)
}

// ParsePartitionID returns the topic and the partition number of the
// partition id on input.
func ParsePartitionID(id string) (string, int, error) {
	i := strings.LastIndex(id, "/")
	if i <= 0 || i == len(id)-1 {
		return "", 0, ErrInvalidPartitionID
	}
	partition, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("parsing partition from string: %w: %w", ErrInvalidPartitionID, err)
	}
	if partition < 0 {
		return "", 0, fmt.Errorf("%w: negative partition", ErrInvalidPartitionID)
	}
	return id[:i], partition, nil
}
