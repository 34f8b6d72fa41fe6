package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []Message
	block chan struct{}
	err   error
}

func (s *recordingSender) Send(to, subject, htmlBody string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Message{To: to, Subject: subject, HTMLBody: htmlBody})
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, 10, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(Message{To: "a@example.com", Subject: "hi"}))
	}
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 5, sender.count())

	assert.ErrorIs(t, d.Enqueue(Message{To: "late@example.com"}), ErrDispatcherClosed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_FullQueueDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, 1, 1, nil)

	// The worker takes the first message and blocks in Send, the second
	// fills the queue.
	require.NoError(t, d.Enqueue(Message{Subject: "1"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Enqueue(Message{Subject: "2"}))
	assert.ErrorIs(t, d.Enqueue(Message{Subject: "3"}), ErrQueueFull)

	close(sender.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, sender.count())
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, 1, 1, nil)
	require.NoError(t, d.Enqueue(Message{Subject: "stuck"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(sender.block)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_SendFailureKeepsWorking(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, 1, 4, nil)
	require.NoError(t, d.Enqueue(Message{Subject: "1"}))
	require.NoError(t, d.Enqueue(Message{Subject: "2"}))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, sender.count())
}
