package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubService struct {
	name    string
	startFn func(ctx context.Context) error
	stopped atomic.Int32
	release chan struct{}
}

func newStubService(name string, startFn func(ctx context.Context) error) *stubService {
	return &stubService{name: name, startFn: startFn, release: make(chan struct{})}
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
	if s.startFn != nil {
		return s.startFn(ctx)
	}
	<-s.release
	return nil
}

func (s *stubService) Stop(context.Context) error {
	if s.stopped.Add(1) == 1 {
		close(s.release)
	}
	return nil
}

func TestRunnerStopsAllWhenOneFails(t *testing.T) {
	boom := errors.New("boom")
	failing := newStubService("failing", func(context.Context) error { return boom })
	blocking := newStubService("blocking", nil)

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(1), blocking.stopped.Load())
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	blocking := newStubService("blocking", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, NewRunner(blocking).Run(ctx, time.Second, nil))
	require.Equal(t, int32(1), blocking.stopped.Load())
}

func TestValidMode(t *testing.T) {
	require.True(t, ValidMode(ModeWorker))
	require.False(t, ValidMode("cron"))
}
