// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	loglib "github.com/xataio/eventpipe/pkg/log"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (*Message, error)
	Close() error
}

// ReaderFactory returns a reader for the topic partition on input, starting
// at the given offset.
type ReaderFactory func(topic string, partition int, offset int64) (MessageReader, error)

// PartitionReader is a wrapper around the kafkago reader, reading a single
// topic partition. Offsets are not committed by the reader, they are
// committed through the consumer group generation that owns the partition.
type PartitionReader struct {
	reader *kafka.Reader
}

// NewReaderFactory returns a factory of partition readers for the consumer
// configuration on input.
func NewReaderFactory(config ConsumerConfig, logger loglib.Logger) (ReaderFactory, error) {
	dialer, err := buildDialer(&config.Conn.TLS)
	if err != nil {
		return nil, err
	}

	return func(topic string, partition int, offset int64) (MessageReader, error) {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     config.Conn.Servers,
			Topic:       topic,
			Partition:   partition,
			Dialer:      dialer,
			MaxBytes:    config.maxBytes(),
			Logger:      makeLogger(logger.Trace),
			ErrorLogger: makeErrLogger(logger.Error),
		})
		if err := reader.SetOffset(offset); err != nil {
			reader.Close()
			return nil, fmt.Errorf("setting offset %d for partition %s: %w", offset, PartitionID(topic, partition), err)
		}
		return &PartitionReader{reader: reader}, nil
	}, nil
}

// FetchMessage returns the next message from the partition. This call will
// block until a message is available, or an error occurs. It can be stopped
// by canceling the context.
func (r *PartitionReader) FetchMessage(ctx context.Context) (*Message, error) {
	kafkaMsg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	msg := Message(kafkaMsg)
	return &msg, nil
}

func (r *PartitionReader) Close() error {
	return r.reader.Close()
}
