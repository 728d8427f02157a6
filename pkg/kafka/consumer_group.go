// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	loglib "github.com/xataio/eventpipe/pkg/log"
)

// ConsumerGroup is a member of a kafka consumer group. Every call to Next
// joins a new generation of the group, with its own partition assignments.
type ConsumerGroup interface {
	Next(ctx context.Context) (Generation, error)
	Close() error
}

// Generation is a single generation of a consumer group. It ends when the
// group is rebalanced or closed, or when any of the functions started in it
// returns.
type Generation interface {
	ID() int32
	MemberID() string
	// Assignments returns the partitions assigned to this member, keyed by
	// topic.
	Assignments() map[string][]PartitionAssignment
	// Start runs the function on input in a goroutine. The context is done
	// when the generation ends.
	Start(fn func(ctx context.Context))
	// CommitOffsets commits the offsets on input for the generation. The
	// offsets are keyed by topic and partition, and must be the offset of the
	// next message to be consumed.
	CommitOffsets(offsets map[string]map[int]int64) error
}

type PartitionAssignment struct {
	Partition int
	// Offset is the committed offset of the partition, or the configured start
	// offset if there is no commit for the group.
	Offset int64
}

// ErrGroupClosed is returned by Next once the consumer group has been closed.
var ErrGroupClosed = kafka.ErrGroupClosed

// Group is a wrapper around the kafkago consumer group.
type Group struct {
	group *kafka.ConsumerGroup
}

func NewConsumerGroup(config ConsumerConfig, logger loglib.Logger) (*Group, error) {
	logger.Info("creating kafka consumer group", loglib.Fields{
		"kafka_servers":  config.Conn.Servers,
		"kafka_topic":    config.Conn.Topic.Name,
		"consumer_group": config.GroupID,
		"tls_enabled":    config.Conn.TLS.Enabled,
	})

	startOffset, err := config.startOffset()
	if err != nil {
		return nil, err
	}

	dialer, err := buildDialer(&config.Conn.TLS)
	if err != nil {
		return nil, err
	}

	group, err := kafka.NewConsumerGroup(kafka.ConsumerGroupConfig{
		ID:                config.GroupID,
		Brokers:           config.Conn.Servers,
		Dialer:            dialer,
		Topics:            []string{config.Conn.Topic.Name},
		StartOffset:       startOffset,
		SessionTimeout:    config.SessionTimeout,
		HeartbeatInterval: config.HeartbeatInterval,
		RebalanceTimeout:  config.RebalanceTimeout,
		Logger:            makeLogger(logger.Trace),
		ErrorLogger:       makeErrLogger(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka consumer group: %w", err)
	}

	return &Group{group: group}, nil
}

// Next blocks until the next generation of the consumer group has been
// joined, the context is canceled or the group is closed.
func (g *Group) Next(ctx context.Context) (Generation, error) {
	gen, err := g.group.Next(ctx)
	if err != nil {
		return nil, err
	}
	return &groupGeneration{gen: gen}, nil
}

func (g *Group) Close() error {
	if err := g.group.Close(); err != nil && !errors.Is(err, kafka.ErrGroupClosed) {
		return err
	}
	return nil
}

type groupGeneration struct {
	gen *kafka.Generation
}

func (g *groupGeneration) ID() int32 {
	return g.gen.ID
}

func (g *groupGeneration) MemberID() string {
	return g.gen.MemberID
}

func (g *groupGeneration) Assignments() map[string][]PartitionAssignment {
	assignments := make(map[string][]PartitionAssignment, len(g.gen.Assignments))
	for topic, partitions := range g.gen.Assignments {
		for _, p := range partitions {
			assignments[topic] = append(assignments[topic], PartitionAssignment{
				Partition: p.ID,
				Offset:    p.Offset,
			})
		}
	}
	return assignments
}

func (g *groupGeneration) Start(fn func(ctx context.Context)) {
	g.gen.Start(fn)
}

func (g *groupGeneration) CommitOffsets(offsets map[string]map[int]int64) error {
	return g.gen.CommitOffsets(offsets)
}
