// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"errors"
	"time"
)

type Config struct {
	// URL the event payloads are posted to.
	URL string
	// Headers are added to every webhook request.
	Headers map[string]string
	// ClientTimeout is the max time the handler will wait for a response from
	// the webhook url before it times out. Defaults to 10s.
	ClientTimeout time.Duration
	// IncludeMetadata adds a metadataKey object with the delivery id, the
	// partition id and the offset to JSON object payloads. Any other payload
	// is posted unchanged.
	IncludeMetadata bool
}

const defaultClientTimeout = 10 * time.Second

var errMissingURL = errors.New("webhook url must be provided")

func (c *Config) clientTimeout() time.Duration {
	if c.ClientTimeout > 0 {
		return c.ClientTimeout
	}

	return defaultClientTimeout
}
