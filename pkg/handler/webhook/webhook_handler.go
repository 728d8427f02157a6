// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	httplib "github.com/xataio/eventpipe/internal/http"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/pipe"
)

// Handler posts the payload of every event it receives to the configured
// webhook url. Any response status other than 2xx is a handling failure.
type Handler struct {
	client  httplib.Client
	url     string
	headers map[string]string
	logger  loglib.Logger
	newID   func() string

	includeMetadata bool
}

type Option func(*Handler)

const (
	DeliveryIDHeader  = "X-Eventpipe-Delivery"
	PartitionIDHeader = "X-Eventpipe-Partition"
	OffsetHeader      = "X-Eventpipe-Offset"

	// response bodies over this size are truncated in the errors
	maxResponseBodyBytes = 1024

	metadataKey = "_eventpipe"
)

func New(cfg *Config, opts ...Option) (*Handler, error) {
	if cfg.URL == "" {
		return nil, errMissingURL
	}

	h := &Handler{
		client: &http.Client{
			Timeout: cfg.clientTimeout(),
		},
		url:     cfg.URL,
		headers: cfg.Headers,
		logger:  loglib.NewNoopLogger(),
		newID:   uuid.NewString,

		includeMetadata: cfg.IncludeMetadata,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

func WithLogger(l loglib.Logger) Option {
	return func(h *Handler) {
		h.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "webhook_handler",
		})
	}
}

func WithClient(c httplib.Client) Option {
	return func(h *Handler) {
		h.client = c
	}
}

func (h *Handler) Handle(ctx context.Context, c *pipe.Context) error {
	deliveryID := h.newID()
	body := c.Event.Value
	if h.includeMetadata && isJSONObject(body) {
		var err error
		body, err = sjson.SetBytes(body, metadataKey, map[string]any{
			"delivery_id":  deliveryID,
			"partition_id": c.Event.PartitionID,
			"offset":       c.Event.Offset,
		})
		if err != nil {
			return fmt.Errorf("adding webhook metadata: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryIDHeader, deliveryID)
	req.Header.Set(PartitionIDHeader, c.Event.PartitionID)
	req.Header.Set(OffsetHeader, strconv.FormatInt(c.Event.Offset, 10))
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	h.logger.Trace("sending webhook", loglib.Fields{
		"url":                   h.url,
		"delivery_id":           deliveryID,
		loglib.PartitionIDField: c.Event.PartitionID,
		loglib.OffsetField:      c.Event.Offset,
	})

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("error response from webhook request, status code: %s, body: %v", resp.Status, getResponseBody(resp.Body))
	}

	return nil
}

func isJSONObject(payload []byte) bool {
	return gjson.ValidBytes(payload) && gjson.ParseBytes(payload).IsObject()
}

func getResponseBody(respBody io.Reader) string {
	bodyBytes, err := io.ReadAll(io.LimitReader(respBody, maxResponseBodyBytes))
	if err != nil {
		return ""
	}
	return string(bodyBytes)
}
