package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
)

// busySource never runs dry and flags every other frame as an error frame.
type busySource struct{ n int }

func (s *busySource) Receive() bool {
	s.n++
	return true
}

func (s *busySource) HasErrorFrame() bool { return s.n%2 == 0 }
func (s *busySource) Frame() can.Frame    { return can.Frame{ID: 0x300, Length: 1} }
func (s *busySource) Err() error          { return nil }

func TestReaderCloseReleasesBlockedReceiver(t *testing.T) {
	r := newSocketCANReader(nil)

	finished := make(chan struct{})
	go func() {
		r.receive(&busySource{})
		close(finished)
	}()

	require.Eventually(t, func() bool { return len(r.frames) == cap(r.frames) }, time.Second, time.Millisecond)

	f, err := r.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(0x300), f.ID)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("receive loop still blocked after Close")
	}

	for range r.frames {
	}
	_, err = r.ReadFrame(context.Background())
	assert.ErrorContains(t, err, "closed")
}

func TestReaderHonoursContext(t *testing.T) {
	r := newSocketCANReader(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
