// SPDX-License-Identifier: Apache-2.0

package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xataio/eventpipe/internal/log/zerolog"
	"github.com/xataio/eventpipe/pkg/endpoint"
	"github.com/xataio/eventpipe/pkg/handler/webhook"
	"github.com/xataio/eventpipe/pkg/kafka"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/stream"
	kafkatransport "github.com/xataio/eventpipe/pkg/transport/kafka"
)

var kafkaBrokers []string

type delivery struct {
	partitionID string
	offset      string
	payload     string
}

type mockWebhookServer struct {
	*httptest.Server
	deliveries chan delivery
}

func newMockWebhookServer() *mockWebhookServer {
	mw := &mockWebhookServer{
		deliveries: make(chan delivery, 100),
	}
	mw.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mw.deliveries <- delivery{
			partitionID: r.Header.Get(webhook.PartitionIDHeader),
			offset:      r.Header.Get(webhook.OffsetHeader),
			payload:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	return mw
}

// waitForDeliveries returns the payloads of the next n webhook deliveries.
func (mw *mockWebhookServer) waitForDeliveries(t *testing.T, n int) []string {
	payloads := make([]string, 0, n)
	timer := time.NewTimer(60 * time.Second)
	defer timer.Stop()
	for len(payloads) < n {
		select {
		case d := <-mw.deliveries:
			payloads = append(payloads, d.payload)
		case <-timer.C:
			t.Fatalf("timed out waiting for webhook deliveries, got %d out of %d", len(payloads), n)
		}
	}
	return payloads
}

func testLogger() loglib.Logger {
	return zerolog.NewStdLogger(zerolog.NewLogger(&zerolog.Config{
		LogLevel: "debug",
	}))
}

func testConnConfig(topic string) kafka.ConnConfig {
	return kafka.ConnConfig{
		Servers: kafkaBrokers,
		Topic: kafka.TopicConfig{
			Name:          topic,
			NumPartitions: 2,
			AutoCreate:    true,
		},
	}
}

func testStreamConfig(topic, groupID, webhookURL string) *stream.Config {
	return &stream.Config{
		Source: stream.SourceConfig{
			Kafka: &kafkatransport.Config{
				Consumer: kafka.ConsumerConfig{
					Conn:    testConnConfig(topic),
					GroupID: groupID,
				},
			},
		},
		Endpoint: endpoint.Config{
			Receive: endpoint.ReceiveSettings{
				CheckpointMessageCount: 3,
				CheckpointInterval:     time.Hour,
				ConcurrencyLimit:       2,
			},
			ValidateJSON: true,
		},
		Handler: stream.HandlerConfig{
			Webhook: &webhook.Config{URL: webhookURL},
		},
	}
}

// produceMessages writes the messages to the topic, creating it if needed.
func produceMessages(t *testing.T, ctx context.Context, topic string, from, to int) []string {
	writer, err := kafka.NewWriter(kafka.WriterConfig{
		Conn:         testConnConfig(topic),
		BatchTimeout: 10 * time.Millisecond,
	}, testLogger())
	require.NoError(t, err)
	defer writer.Close()

	payloads := []string{}
	msgs := []kafka.Message{}
	for i := from; i < to; i++ {
		payload := fmt.Sprintf(`{"id":%d}`, i)
		payloads = append(payloads, payload)
		msgs = append(msgs, kafka.Message{
			Key:   []byte(fmt.Sprintf("key-%d", i)),
			Value: []byte(payload),
		})
	}
	require.NoError(t, writer.WriteMessages(ctx, msgs...))
	return payloads
}

// runStream runs the stream until the returned stop function is called.
func runStream(t *testing.T, ctx context.Context, cfg *stream.Config) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)
	errChan := make(chan error, 1)
	go func() {
		errChan <- stream.Run(runCtx, testLogger(), cfg, nil)
	}()

	return func() {
		cancel()
		select {
		case err := <-errChan:
			require.NoError(t, err)
		case <-time.After(60 * time.Second):
			t.Fatal("timed out waiting for stream to stop")
		}
	}
}
