// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"

	"github.com/xataio/eventpipe/pkg/kafka"
)

// StatusChecker validates the eventpipe configuration and checks the source
// topic is reachable on the configured brokers.
type StatusChecker struct {
	partitionsReader func(*kafka.ConnConfig) ([]string, error)
}

const (
	sourceNotProvided     = "source not provided"
	sourceKafkaNotReached = "source kafka topic not reachable"
)

func NewStatusChecker() *StatusChecker {
	return &StatusChecker{
		partitionsReader: kafka.ReadPartitions,
	}
}

// Status returns the status of the configuration and the source, including
// any errors found while checking them.
func (s *StatusChecker) Status(_ context.Context, config *Config) *Status {
	return &Status{
		Config: s.configStatus(config),
		Source: s.sourceStatus(config),
	}
}

// configStatus validates if the configuration provided is valid.
func (s *StatusChecker) configStatus(config *Config) *ConfigStatus {
	if err := config.IsValid(); err != nil {
		return &ConfigStatus{
			Valid:  false,
			Errors: []string{err.Error()},
		}
	}

	return &ConfigStatus{
		Valid: true,
	}
}

// sourceStatus validates if the source kafka topic is reachable, and returns
// its partitions.
func (s *StatusChecker) sourceStatus(config *Config) *SourceStatus {
	if config.Source.Kafka == nil {
		return &SourceStatus{
			Reachable: false,
			Errors:    []string{sourceNotProvided},
		}
	}

	conn := &config.Source.Kafka.Consumer.Conn
	partitions, err := s.partitionsReader(conn)
	if err != nil {
		return &SourceStatus{
			Reachable: false,
			Topic:     conn.Topic.Name,
			Errors:    []string{sourceKafkaNotReached + ": " + err.Error()},
		}
	}

	return &SourceStatus{
		Reachable:  true,
		Topic:      conn.Topic.Name,
		Partitions: partitions,
	}
}
