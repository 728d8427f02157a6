// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	tlslib "github.com/xataio/eventpipe/pkg/tls"
)

type ConnConfig struct {
	Servers []string
	Topic   TopicConfig
	TLS     tlslib.Config
}

type TopicConfig struct {
	Name string
	// Number of partitions to be created for the topic. Defaults to 1.
	NumPartitions int
	// Replication factor for the topic. Defaults to 1.
	ReplicationFactor int
	// AutoCreate defines if the topic should be created if it doesn't exist.
	// Defaults to false.
	AutoCreate bool
}

// ConsumerConfig is the configuration of a consumer group member reading all
// the partitions assigned to it for the configured topic.
type ConsumerConfig struct {
	Conn    ConnConfig
	GroupID string
	// StartOffset is used for partitions without a committed offset. One of
	// "earliest" or "latest". Defaults to "earliest".
	StartOffset string
	// SessionTimeout, HeartbeatInterval and RebalanceTimeout default to the
	// kafka-go consumer group defaults when not set.
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	RebalanceTimeout  time.Duration
	// MaxBytes is the maximum batch size fetched from the broker per partition.
	// Defaults to 25MiB.
	MaxBytes int
}

const (
	defaultNumPartitions     = 1
	defaultReplicationFactor = 1

	earliestOffset = "earliest"
	latestOffset   = "latest"

	defaultMaxBytes = 25 * 1024 * 1024 // 25 MiB
)

func (c *TopicConfig) numPartitions() int {
	if c.NumPartitions > 0 {
		return c.NumPartitions
	}
	return defaultNumPartitions
}

func (c *TopicConfig) replicationFactor() int {
	if c.ReplicationFactor > 0 {
		return c.ReplicationFactor
	}
	return defaultReplicationFactor
}

func (c *ConsumerConfig) startOffset() (int64, error) {
	switch c.StartOffset {
	case "", earliestOffset:
		return kafka.FirstOffset, nil
	case latestOffset:
		return kafka.LastOffset, nil
	default:
		return 0, fmt.Errorf("unsupported start offset [%s], must be one of [%s, %s]", c.StartOffset, earliestOffset, latestOffset)
	}
}

func (c *ConsumerConfig) maxBytes() int {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return defaultMaxBytes
}
