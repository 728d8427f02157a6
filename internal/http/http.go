// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
)

// Client is the subset of *http.Client used to send outgoing requests.
type Client interface {
	Do(*http.Request) (*http.Response, error)
}

// Server is the subset of the echo server lifecycle used by the status
// server.
type Server interface {
	Start(address string) error
	Shutdown(context.Context) error
}
