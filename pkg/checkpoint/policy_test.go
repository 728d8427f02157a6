// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		maxPendingCount uint
		maxElapsed      time.Duration

		wantPolicy Policy
		wantErr    error
	}{
		{
			name:            "ok",
			maxPendingCount: 5000,
			maxElapsed:      time.Minute,

			wantPolicy: Policy{MaxPendingCount: 5000, MaxElapsed: time.Minute},
			wantErr:    nil,
		},
		{
			name:            "error - zero pending count",
			maxPendingCount: 0,
			maxElapsed:      time.Minute,

			wantPolicy: Policy{},
			wantErr:    ErrInvalidPolicy,
		},
		{
			name:            "error - zero elapsed time",
			maxPendingCount: 10,
			maxElapsed:      0,

			wantPolicy: Policy{},
			wantErr:    ErrInvalidPolicy,
		},
		{
			name:            "error - negative elapsed time",
			maxPendingCount: 10,
			maxElapsed:      -time.Second,

			wantPolicy: Policy{},
			wantErr:    ErrInvalidPolicy,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			policy, err := NewPolicy(tc.maxPendingCount, tc.maxElapsed)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantPolicy, policy)
		})
	}
}
