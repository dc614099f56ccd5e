package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/model"
)

func testCoordinator(t *testing.T, mutate func(*config.Config)) *Coordinator {
	t.Helper()

	cfg := config.NewConfig()
	cfg.ResultPollInterval = 5 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	return NewCoordinator(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(NewMetrics()),
	)
}

func deliver(c *Coordinator, sessionID string) {
	c.Submit(&model.QueueEntry{
		SessionID:  sessionID,
		RecordID:   "100-4122",
		Vendor:     "grainger",
		Fields:     map[string]string{"price": "$10.50"},
		CapturedAt: time.Now(),
	})
}

func TestCoordinator_AwaitResult(t *testing.T) {
	t.Parallel()

	t.Run("result already queued", func(t *testing.T) {
		t.Parallel()

		c := testCoordinator(t, nil)
		sess := c.OpenSession("100-4122", "grainger", "https://www.grainger.com/product/100-4122/")
		deliver(c, sess.ID)

		entry, err := c.AwaitResult(context.Background(), sess.ID, time.Second)
		if err != nil {
			t.Fatalf("AwaitResult() error = %v", err)
		}
		if entry.SessionID != sess.ID {
			t.Errorf("entry session = %q, want %q", entry.SessionID, sess.ID)
		}
	})

	t.Run("result arrives while waiting", func(t *testing.T) {
		t.Parallel()

		c := testCoordinator(t, nil)
		sess := c.OpenSession("100-4122", "grainger", "https://www.grainger.com/product/100-4122/")

		go func() {
			time.Sleep(30 * time.Millisecond)
			deliver(c, sess.ID)
		}()

		entry, err := c.AwaitResult(context.Background(), sess.ID, 2*time.Second)
		if err != nil {
			t.Fatalf("AwaitResult() error = %v", err)
		}
		if entry.RecordID != "100-4122" {
			t.Errorf("entry record = %q", entry.RecordID)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		c := testCoordinator(t, nil)
		sess := c.OpenSession("100-4122", "grainger", "https://www.grainger.com/product/100-4122/")

		_, err := c.AwaitResult(context.Background(), sess.ID, 30*time.Millisecond)
		if !errors.Is(err, ErrAwaitTimeout) {
			t.Errorf("AwaitResult() error = %v, want ErrAwaitTimeout", err)
		}
	})

	t.Run("other sessions' results stay queued", func(t *testing.T) {
		t.Parallel()

		c := testCoordinator(t, nil)
		mine := c.OpenSession("100-4122", "grainger", "u1")
		other := c.OpenSession("200-9000", "zoro", "u2")
		deliver(c, other.ID)
		deliver(c, mine.ID)

		entry, err := c.AwaitResult(context.Background(), mine.ID, time.Second)
		if err != nil {
			t.Fatalf("AwaitResult() error = %v", err)
		}
		if entry.SessionID != mine.ID {
			t.Errorf("got entry for %q, want %q", entry.SessionID, mine.ID)
		}

		stale, ok := c.Dequeue()
		if !ok || stale.SessionID != other.ID {
			t.Errorf("other session's entry should remain, got %v, %v", stale, ok)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		c := testCoordinator(t, nil)
		sess := c.OpenSession("100-4122", "grainger", "u")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.AwaitResult(ctx, sess.ID, time.Minute)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("AwaitResult() error = %v, want context.Canceled", err)
		}
	})
}

func TestCoordinator_Dequeue_DropsStaleEntries(t *testing.T) {
	t.Parallel()

	c := testCoordinator(t, nil)
	live := c.OpenSession("100-4122", "grainger", "u")

	// Entry for a session the registry never knew.
	deliver(c, "ghost-session")
	deliver(c, live.ID)

	entry, ok := c.Dequeue()
	if !ok {
		t.Fatal("Dequeue() returned empty")
	}
	if entry.SessionID != live.ID {
		t.Errorf("Dequeue() = %q, want live session entry", entry.SessionID)
	}
}

func TestCoordinator_FinishSession(t *testing.T) {
	t.Parallel()

	c := testCoordinator(t, nil)
	sess := c.OpenSession("100-4122", "grainger", "u")

	c.FinishSession(sess.ID)
	if !c.broker.ShouldClose(sess.ID) {
		t.Error("close signal should be pending after FinishSession")
	}
	if c.broker.ShouldClose(sess.ID) {
		t.Error("close signal must be delivered exactly once")
	}

	// Unknown session: logged, never fatal.
	c.FinishSession("no-such-session")
}

func TestCoordinator_ExpiredSessionForgetsCloseSignal(t *testing.T) {
	t.Parallel()

	c := testCoordinator(t, func(cfg *config.Config) {
		cfg.SessionTTL = 20 * time.Millisecond
	})
	sess := c.OpenSession("100-4122", "grainger", "u")
	c.FinishSession(sess.ID)

	deadline := time.Now().Add(2 * time.Second)
	for c.Sessions() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("session did not expire within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if c.broker.ShouldClose(sess.ID) {
		t.Error("expired session's close signal should be forgotten")
	}
}
