package broker

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroker_SignalDeliveredOnce(t *testing.T) {
	t.Parallel()

	b := New(WithLogger(discardLogger()))

	if b.ShouldClose("s1") {
		t.Error("ShouldClose() before any request should be false")
	}

	b.RequestClose("s1")
	if !b.ShouldClose("s1") {
		t.Error("first ShouldClose() after request should be true")
	}
	if b.ShouldClose("s1") {
		t.Error("second ShouldClose() should be false, signal already consumed")
	}
}

func TestBroker_RequestClose_Idempotent(t *testing.T) {
	t.Parallel()

	b := New(WithLogger(discardLogger()))
	b.RequestClose("s1")
	b.RequestClose("s1")

	if b.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", b.Pending())
	}
	if !b.ShouldClose("s1") {
		t.Error("ShouldClose() should be true after repeated requests")
	}
	if b.ShouldClose("s1") {
		t.Error("repeated requests must still deliver the signal only once")
	}
}

func TestBroker_Forget(t *testing.T) {
	t.Parallel()

	b := New(WithLogger(discardLogger()))
	b.RequestClose("s1")
	b.Forget("s1")

	if b.ShouldClose("s1") {
		t.Error("ShouldClose() after Forget should be false")
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", b.Pending())
	}
}

func TestBroker_ConcurrentPolls_ExactlyOneWinner(t *testing.T) {
	t.Parallel()

	b := New(WithLogger(discardLogger()))
	b.RequestClose("s1")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.ShouldClose("s1") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("signal consumed %d times, want exactly 1", got)
	}
}

func TestBroker_SessionsIndependent(t *testing.T) {
	t.Parallel()

	b := New(WithLogger(discardLogger()))
	b.RequestClose("s1")

	if b.ShouldClose("s2") {
		t.Error("signal for s1 must not leak to s2")
	}
	if !b.ShouldClose("s1") {
		t.Error("signal for s1 should still be pending")
	}
}
