// SPDX-License-Identifier: Apache-2.0

package nats

import (
	"time"

	tlslib "github.com/xataio/eventpipe/pkg/tls"
)

type ConnConfig struct {
	URL             string
	Stream          StreamConfig
	TLS             tlslib.Config
	CredentialsFile string
}

type StreamConfig struct {
	// Name is the name of the JetStream stream. It is also the base subject
	// messages are published under.
	Name string
	// Replicas is the number of stream replicas. Defaults to 1.
	Replicas int
	// AutoCreate defines if the stream should be created if it doesn't exist.
	// Defaults to false.
	AutoCreate bool
	// MaxBytes is the maximum bytes for the stream. Defaults to unlimited.
	MaxBytes int64
	// MaxAge is the maximum age of messages in the stream. Defaults to
	// unlimited.
	MaxAge time.Duration
	// DuplicateWindow is the window used by the stream to discard messages
	// with an already seen id. Defaults to the server setting (2m).
	DuplicateWindow time.Duration
}

type WriterConfig struct {
	Conn ConnConfig
}

const defaultReplicas = 1

func (c *StreamConfig) replicas() int {
	if c.Replicas > 0 {
		return c.Replicas
	}
	return defaultReplicas
}

// subjects returns the subjects captured by the stream, all the ones under
// the stream name.
func (c *StreamConfig) subjects() []string {
	return []string{c.Name + ".>"}
}
