// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/transport"
)

func TestPartitionState_TryCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("ok - below thresholds", func(t *testing.T) {
		t.Parallel()

		recorder := &commitRecorder{}
		state := newPartitionState(testPartition, newTestPolicy(3, time.Hour), clockwork.NewFakeClock(), loglib.NewNoopLogger())

		committed, err := state.TryCheckpoint(ctx, recorder.newEvent(testPartition, 1))
		require.NoError(t, err)
		require.False(t, committed)
		require.Equal(t, uint(1), state.processedSinceCheckpoint)
		require.Equal(t, int64(1), state.pendingEvent().Offset)
		require.Empty(t, recorder.committed())
	})

	t.Run("ok - count threshold commits the most recent event", func(t *testing.T) {
		t.Parallel()

		recorder := &commitRecorder{}
		state := newPartitionState(testPartition, newTestPolicy(2, time.Hour), clockwork.NewFakeClock(), loglib.NewNoopLogger())

		committed, err := state.TryCheckpoint(ctx, recorder.newEvent(testPartition, 10))
		require.NoError(t, err)
		require.False(t, committed)

		committed, err = state.TryCheckpoint(ctx, recorder.newEvent(testPartition, 11))
		require.NoError(t, err)
		require.True(t, committed)
		require.Equal(t, []int64{11}, recorder.committed())
		require.Nil(t, state.pendingEvent())
		require.Zero(t, state.processedSinceCheckpoint)
	})

	t.Run("error - commit failure keeps the pending state", func(t *testing.T) {
		t.Parallel()

		recorder := &commitRecorder{err: errTest}
		state := newPartitionState(testPartition, newTestPolicy(1, time.Hour), clockwork.NewFakeClock(), loglib.NewNoopLogger())

		committed, err := state.TryCheckpoint(ctx, recorder.newEvent(testPartition, 1))
		require.ErrorIs(t, err, errTest)
		require.True(t, transport.IsCommitError(err))
		require.False(t, committed)
		require.Equal(t, uint(1), state.processedSinceCheckpoint)
		require.Equal(t, int64(1), state.pendingEvent().Offset)

		// the next event retries the commit with the most recent position
		recorder.setErr(nil)
		committed, err = state.TryCheckpoint(ctx, recorder.newEvent(testPartition, 2))
		require.NoError(t, err)
		require.True(t, committed)
		require.Equal(t, []int64{2}, recorder.committed())
	})

	t.Run("ok - closed state ignores events", func(t *testing.T) {
		t.Parallel()

		recorder := &commitRecorder{}
		state := newPartitionState(testPartition, newTestPolicy(1, time.Hour), clockwork.NewFakeClock(), loglib.NewNoopLogger())
		require.NoError(t, state.Close(ctx, transport.CloseReasonOwnershipLost))

		committed, err := state.TryCheckpoint(ctx, recorder.newEvent(testPartition, 1))
		require.NoError(t, err)
		require.False(t, committed)
		require.Empty(t, recorder.committed())
	})
}

func TestPartitionState_Close(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reason    transport.CloseReason
		events    int
		commitErr error

		wantCommitted []int64
		wantErr       error
	}{
		{
			name:          "shutdown commits the pending event",
			reason:        transport.CloseReasonShutdown,
			events:        2,
			wantCommitted: []int64{2},
		},
		{
			name:          "shutdown without pending event",
			reason:        transport.CloseReasonShutdown,
			events:        0,
			wantCommitted: []int64{},
		},
		{
			name:          "ownership lost never commits",
			reason:        transport.CloseReasonOwnershipLost,
			events:        2,
			wantCommitted: []int64{},
		},
		{
			name:          "unreachable never commits",
			reason:        transport.CloseReasonUnreachable,
			events:        2,
			wantCommitted: []int64{},
		},
		{
			name:          "faulted never commits",
			reason:        transport.CloseReasonFaulted,
			events:        2,
			wantCommitted: []int64{},
		},
		{
			name:          "shutdown commit failure still cleans up",
			reason:        transport.CloseReasonShutdown,
			events:        2,
			commitErr:     errTest,
			wantCommitted: []int64{},
			wantErr:       errTest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			recorder := &commitRecorder{}
			state := newPartitionState(testPartition, newTestPolicy(10, time.Hour), clockwork.NewFakeClock(), loglib.NewNoopLogger())
			for i := 1; i <= tc.events; i++ {
				_, err := state.TryCheckpoint(ctx, recorder.newEvent(testPartition, int64(i)))
				require.NoError(t, err)
			}

			recorder.setErr(tc.commitErr)
			err := state.Close(ctx, tc.reason)
			require.ErrorIs(t, err, tc.wantErr)
			require.ElementsMatch(t, tc.wantCommitted, recorder.committed())
			require.Nil(t, state.pendingEvent())
			require.Zero(t, state.processedSinceCheckpoint)
			require.True(t, state.closed)

			// closing twice is a noop
			require.NoError(t, state.Close(ctx, transport.CloseReasonShutdown))
		})
	}
}
