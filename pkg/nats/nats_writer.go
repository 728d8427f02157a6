// SPDX-License-Identifier: Apache-2.0

package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	loglib "github.com/xataio/eventpipe/pkg/log"
)

type MessageWriter interface {
	WriteMessages(context.Context, ...Message) error
	Close() error
}

// Message represents a NATS JetStream message.
type Message struct {
	// Subject is the subject suffix, appended to the stream name.
	Subject string
	// ID is used by the stream to discard duplicates within the stream
	// duplicate window.
	ID      string
	Value   []byte
	Headers map[string][]byte
}

// Size returns the size of the message value (does not include headers or
// other fields).
func (m Message) Size() int {
	return len(m.Value)
}

// Writer is a NATS JetStream writer that publishes messages to a configured
// stream.
type Writer struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
}

var errMissingStreamName = errors.New("nats jetstream stream name must be provided")

// NewWriter returns a NATS JetStream writer that publishes messages under the
// configured stream subjects. If the stream auto create setting is enabled in
// the config, it will create or update the stream.
func NewWriter(config WriterConfig, logger loglib.Logger) (*Writer, error) {
	if config.Conn.Stream.Name == "" {
		return nil, errMissingStreamName
	}

	logger.Info("creating nats jetstream writer", loglib.Fields{
		"nats_url":    config.Conn.URL,
		"stream":      config.Conn.Stream.Name,
		"tls_enabled": config.Conn.TLS.Enabled,
	})

	opts, err := buildConnOptions(&config.Conn, logger)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(config.Conn.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	if config.Conn.Stream.AutoCreate {
		if err := createStream(context.Background(), js, &config.Conn.Stream); err != nil {
			nc.Close()
			return nil, err
		}
	}

	return &Writer{
		conn:   nc,
		js:     js,
		stream: config.Conn.Stream.Name,
	}, nil
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...Message) error {
	for _, msg := range msgs {
		natsMsg := &nats.Msg{
			Subject: w.subject(msg.Subject),
			Data:    msg.Value,
			Header:  nats.Header{},
		}
		for k, v := range msg.Headers {
			natsMsg.Header.Set(k, string(v))
		}

		opts := []jetstream.PublishOpt{}
		if msg.ID != "" {
			opts = append(opts, jetstream.WithMsgID(msg.ID))
		}

		if _, err := w.js.PublishMsg(ctx, natsMsg, opts...); err != nil {
			return fmt.Errorf("publishing to nats jetstream subject %s: %w", natsMsg.Subject, err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	if w.conn != nil {
		w.conn.Close()
	}
	return nil
}

func (w *Writer) subject(suffix string) string {
	if suffix == "" {
		return w.stream + ".default"
	}
	return w.stream + "." + suffix
}

func createStream(ctx context.Context, js jetstream.JetStream, cfg *StreamConfig) error {
	streamCfg := jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.subjects(),
		Replicas:   cfg.replicas(),
		Duplicates: cfg.DuplicateWindow,
	}

	if cfg.MaxBytes > 0 {
		streamCfg.MaxBytes = cfg.MaxBytes
	}
	if cfg.MaxAge > 0 {
		streamCfg.MaxAge = cfg.MaxAge
	}

	if _, err := js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("creating stream: %w", err)
	}

	return nil
}
