// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync"

	"github.com/xataio/eventpipe/pkg/transport"
)

type Completer struct {
	CompleteFn func(ctx context.Context, event *transport.Event) error

	mu        sync.Mutex
	completed []*transport.Event
}

func (m *Completer) Complete(ctx context.Context, event *transport.Event) error {
	m.mu.Lock()
	m.completed = append(m.completed, event)
	m.mu.Unlock()
	if m.CompleteFn == nil {
		return nil
	}
	return m.CompleteFn(ctx, event)
}

func (m *Completer) GetCompleted() []*transport.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}
