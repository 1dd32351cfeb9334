package attachments

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(kind, name string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+name)
	l.mu.Unlock()
}

func (l *eventLog) has(want string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == want {
			return true
		}
	}
	return false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_PutReportsCreated(t *testing.T) {
	s := tempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	go Watch(ctx, s.Root(), quietLogger(), log.add)
	time.Sleep(100 * time.Millisecond)

	if _, err := s.Put(ctx, "new.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:new.png")
	}, "expected created:new.png callback")

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, e := range log.events {
		if strings.Contains(e, ":.") {
			t.Errorf("temp file leaked into events: %s", e)
		}
	}
}

func TestWatcher_RemoveReportsDeleted(t *testing.T) {
	s := tempStore(t)
	_ = os.WriteFile(filepath.Join(s.Root(), "gone.png"), []byte("x"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	go Watch(ctx, s.Root(), quietLogger(), log.add)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(s.Root(), "gone.png"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("deleted:gone.png")
	}, "expected deleted:gone.png callback")
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	s := tempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, s.Root(), quietLogger(), nil) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
