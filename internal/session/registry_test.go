package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/partsync/partsync/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, WithLogger(discardLogger()))
	sess := r.Register("100-4122", "grainger", "https://www.grainger.com/product/100-4122/")

	if sess.ID == "" {
		t.Error("session id should not be empty")
	}
	if sess.State() != model.SessionRegistered {
		t.Errorf("state = %s, want %s", sess.State(), model.SessionRegistered)
	}

	got, err := r.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RecordID != "100-4122" {
		t.Errorf("RecordID = %q, want %q", got.RecordID, "100-4122")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, WithLogger(discardLogger()))
	if _, err := r.Get("no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, WithLogger(discardLogger()))
	sess := r.Register("200-1000", "zoro", "https://www.zoro.com/i/G123/")

	if err := r.MarkAwaiting(sess.ID); err != nil {
		t.Fatalf("MarkAwaiting() error = %v", err)
	}
	if sess.State() != model.SessionAwaitingResult {
		t.Errorf("state = %s, want %s", sess.State(), model.SessionAwaitingResult)
	}

	if err := r.MarkDelivered(sess.ID); err != nil {
		t.Fatalf("MarkDelivered() error = %v", err)
	}
	if sess.State() != model.SessionDelivered {
		t.Errorf("state = %s, want %s", sess.State(), model.SessionDelivered)
	}

	if err := r.RequestClose(sess.ID); err != nil {
		t.Fatalf("RequestClose() error = %v", err)
	}
	if sess.State() != model.SessionCloseRequested {
		t.Errorf("state = %s, want %s", sess.State(), model.SessionCloseRequested)
	}

	if err := r.MarkClosed(sess.ID); err != nil {
		t.Fatalf("MarkClosed() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after close, want 0", r.Len())
	}
	if _, err := r.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after close error = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistry_MarkAwaiting_AfterDelivery(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, WithLogger(discardLogger()))
	sess := r.Register("200-1000", "zoro", "https://www.zoro.com/i/G123/")

	// The extension may post the result before the consumer blocks.
	if err := r.MarkDelivered(sess.ID); err != nil {
		t.Fatalf("MarkDelivered() error = %v", err)
	}
	if err := r.MarkAwaiting(sess.ID); err != nil {
		t.Errorf("MarkAwaiting() after delivery error = %v, want nil", err)
	}
	if sess.State() != model.SessionDelivered {
		t.Errorf("state = %s, want %s unchanged", sess.State(), model.SessionDelivered)
	}
}

func TestRegistry_RequestClose_Idempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, WithLogger(discardLogger()))
	sess := r.Register("200-1000", "zoro", "https://www.zoro.com/i/G123/")

	if err := r.RequestClose(sess.ID); err != nil {
		t.Fatalf("first RequestClose() error = %v", err)
	}
	if err := r.RequestClose(sess.ID); err != nil {
		t.Errorf("second RequestClose() error = %v, want nil", err)
	}
}

func TestRegistry_BackwardTransition(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, WithLogger(discardLogger()))
	sess := r.Register("300-5000", "festo", "https://www.festo.com/us/en/a/8000123")

	if err := r.RequestClose(sess.ID); err != nil {
		t.Fatalf("RequestClose() error = %v", err)
	}
	if err := r.MarkDelivered(sess.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkDelivered() after close request error = %v, want ErrInvalidTransition", err)
	}
}

func TestRegistry_TTLExpiry(t *testing.T) {
	t.Parallel()

	var expired []*model.Session
	done := make(chan struct{})
	r := NewRegistry(20*time.Millisecond,
		WithLogger(discardLogger()),
		WithExpireHook(func(s *model.Session) {
			expired = append(expired, s)
			close(done)
		}),
	)

	sess := r.Register("100-4122", "grainger", "https://www.grainger.com/product/100-4122/")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire within 2s")
	}

	if len(expired) != 1 || expired[0].ID != sess.ID {
		t.Fatalf("expire hook saw %d sessions, want the registered one", len(expired))
	}
	if expired[0].State() != model.SessionExpired {
		t.Errorf("state = %s, want %s", expired[0].State(), model.SessionExpired)
	}
	if _, err := r.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistry_ClosedSessionDoesNotFireExpireHook(t *testing.T) {
	t.Parallel()

	fired := false
	r := NewRegistry(time.Minute,
		WithLogger(discardLogger()),
		WithExpireHook(func(*model.Session) { fired = true }),
	)

	sess := r.Register("100-4122", "grainger", "https://www.grainger.com/product/100-4122/")
	if err := r.MarkClosed(sess.ID); err != nil {
		t.Fatalf("MarkClosed() error = %v", err)
	}
	if fired {
		t.Error("expire hook fired for an explicitly closed session")
	}
}

func TestRegistry_PurgeDoesNotFireExpireHook(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	r := NewRegistry(time.Minute,
		WithLogger(discardLogger()),
		WithExpireHook(func(*model.Session) { fired.Add(1) }),
	)

	for i := 0; i < 8; i++ {
		r.Register(fmt.Sprintf("100-%04d", i), "grainger", "https://www.grainger.com/")
	}

	r.Purge()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Purge, want 0", r.Len())
	}
	if n := fired.Load(); n != 0 {
		t.Errorf("expire hook fired %d times during shutdown purge, want 0", n)
	}
}

// Consumer transitions race the TTL reaper's eviction callback; both sides
// must agree on exactly one terminal state per session without tearing it.
func TestRegistry_ConcurrentTransitionsDuringExpiry(t *testing.T) {
	t.Parallel()

	var expired atomic.Int32
	var badState atomic.Int32
	r := NewRegistry(5*time.Millisecond,
		WithLogger(discardLogger()),
		WithExpireHook(func(s *model.Session) {
			if s.State() != model.SessionExpired {
				badState.Add(1)
			}
			expired.Add(1)
		}),
	)

	const sessions = 32
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		sess := r.Register(fmt.Sprintf("100-%04d", i), "grainger", "https://www.grainger.com/")
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			deadline := time.Now().Add(100 * time.Millisecond)
			for time.Now().Before(deadline) {
				_ = r.MarkAwaiting(id)
				_ = r.MarkDelivered(id)
				_ = r.RequestClose(id)
			}
		}(sess.ID)
	}
	wg.Wait()

	waitUntil := time.Now().Add(2 * time.Second)
	for r.Len() > 0 && time.Now().Before(waitUntil) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := r.Len(); n != 0 {
		t.Fatalf("Len() = %d after TTL, want 0", n)
	}

	if n := expired.Load(); n != sessions {
		t.Errorf("expire hook fired %d times, want %d", n, sessions)
	}
	if n := badState.Load(); n != 0 {
		t.Errorf("%d sessions reached the expire hook in a non-expired state", n)
	}
}
