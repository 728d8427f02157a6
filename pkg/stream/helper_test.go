// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"sync"

	"github.com/xataio/eventpipe/pkg/endpoint"
	"github.com/xataio/eventpipe/pkg/kafka"
	kafkatransport "github.com/xataio/eventpipe/pkg/transport/kafka"
)

func testKafkaSourceConfig() *kafkatransport.Config {
	return &kafkatransport.Config{
		Consumer: kafka.ConsumerConfig{
			Conn: kafka.ConnConfig{
				Servers: []string{"localhost:9092"},
				Topic:   kafka.TopicConfig{Name: "events"},
			},
			GroupID: "eventpipe",
		},
	}
}

func testValidConfig() *Config {
	return &Config{
		Source:  SourceConfig{Kafka: testKafkaSourceConfig()},
		Handler: HandlerConfig{Log: &LogHandlerConfig{}},
	}
}

type mockEndpoint struct {
	startFn func(ctx context.Context) error
	stopFn  func(ctx context.Context) error

	once sync.Once
	done chan struct{}
	err  error
}

func newMockEndpoint() *mockEndpoint {
	return &mockEndpoint{done: make(chan struct{})}
}

func (m *mockEndpoint) Start(ctx context.Context) error {
	if m.startFn != nil {
		return m.startFn(ctx)
	}
	return nil
}

func (m *mockEndpoint) Stop(ctx context.Context) error {
	var err error
	if m.stopFn != nil {
		err = m.stopFn(ctx)
	}
	m.finish(nil)
	return err
}

func (m *mockEndpoint) Done() <-chan struct{} {
	return m.done
}

func (m *mockEndpoint) Err() error {
	return m.err
}

func (m *mockEndpoint) Status() *endpoint.Status {
	return &endpoint.Status{State: "running"}
}

// finish simulates the endpoint stopping with the error on input.
func (m *mockEndpoint) finish(err error) {
	m.once.Do(func() {
		m.err = err
		close(m.done)
	})
}
