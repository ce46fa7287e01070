package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"questminder/internal/eventbus"
	"questminder/internal/reminder"
	logx "questminder/pkg/logx"
)

type countPauser struct{ n atomic.Int32 }

func (p *countPauser) RequestPause() { p.n.Add(1) }

func fastConfig() Config {
	return Config{Enabled: true, Workers: 1, QueueSize: 16, RatePerSec: 1000, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func stop(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSendStates(t *testing.T) {
	off := New(Config{Enabled: false}, nil, nil, logx.Nop(), nil)
	if err := off.Send(reminder.Notification{Title: "x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	idle := New(fastConfig(), nil, nil, logx.Nop(), nil)
	if err := idle.Send(reminder.Notification{Title: "x"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDeliversAndKeepsHistory(t *testing.T) {
	cfg := fastConfig()
	cfg.HistorySize = 2
	s := New(cfg, nil, nil, logx.Nop(), nil)
	s.Start(context.Background())
	defer stop(t, s)

	for i := 0; i < 3; i++ {
		if err := s.Send(reminder.Notification{Title: fmt.Sprintf("n%d", i), Class: reminder.ClassInfo}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	waitFor(t, "history", func() bool {
		h := s.History()
		return len(h) == 2 && h[1].Title == "n2"
	})
	if h := s.History(); h[0].Title != "n1" || h[0].Class != "info" {
		t.Fatalf("history should keep the newest entries: %+v", h)
	}
}

func TestDedupWindow(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16, EventDeduped)
	defer unsub()

	var delivered atomic.Int32
	cfg := fastConfig()
	cfg.DedupWindow = time.Minute
	s := New(cfg, DelivererFunc(func(context.Context, reminder.Notification) error {
		delivered.Add(1)
		return nil
	}), nil, logx.Nop(), bus)
	s.Start(context.Background())

	n := reminder.Notification{Title: "same", Quest: &reminder.QuestRef{ID: 2}}
	_ = s.Send(n)
	_ = s.Send(n)
	_ = s.Send(reminder.Notification{Title: "same", Quest: &reminder.QuestRef{ID: 3}})
	stop(t, s)

	if delivered.Load() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered.Load())
	}
	select {
	case e := <-events:
		if e.Data.(NotificationEvent).QuestID != 2 {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatal("expected a deduped event")
	}
}

func TestRetriesFailedDelivery(t *testing.T) {
	var calls atomic.Int32
	cfg := fastConfig()
	cfg.RetryMax = 2
	s := New(cfg, DelivererFunc(func(context.Context, reminder.Notification) error {
		if calls.Add(1) == 1 {
			return errors.New("screen busy")
		}
		return nil
	}), nil, logx.Nop(), nil)
	s.Start(context.Background())
	_ = s.Send(reminder.Notification{Title: "retry me"})
	waitFor(t, "delivery", func() bool { return len(s.History()) == 1 })
	stop(t, s)
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestQueueFull(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	cfg := fastConfig()
	cfg.QueueSize = 1
	s := New(cfg, DelivererFunc(func(ctx context.Context, _ reminder.Notification) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}), nil, logx.Nop(), nil)
	s.Start(context.Background())

	_ = s.Send(reminder.Notification{Title: "a"})
	<-entered
	if err := s.Send(reminder.Notification{Title: "b"}); err != nil {
		t.Fatalf("second send should queue: %v", err)
	}
	if err := s.Send(reminder.Notification{Title: "c"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(release)
	stop(t, s)
}

func TestStopDrainsAndRejects(t *testing.T) {
	var mu sync.Mutex
	var got []string
	s := New(fastConfig(), DelivererFunc(func(_ context.Context, n reminder.Notification) error {
		mu.Lock()
		got = append(got, n.Title)
		mu.Unlock()
		return nil
	}), nil, logx.Nop(), nil)
	s.Start(context.Background())
	for i := 0; i < 5; i++ {
		_ = s.Send(reminder.Notification{Title: fmt.Sprint(i)})
	}
	stop(t, s)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 5 {
		t.Fatalf("expected the queue to drain, got %v", got)
	}
	if err := s.Send(reminder.Notification{Title: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestRequestPauseForwards(t *testing.T) {
	p := &countPauser{}
	s := New(fastConfig(), nil, p, logx.Nop(), nil)
	s.RequestPause()
	s.RequestPause()
	if p.n.Load() != 2 {
		t.Fatalf("pauser called %d times", p.n.Load())
	}
}

func TestRetryDelayBounds(t *testing.T) {
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: 250 * time.Millisecond}
	for attempt := 1; attempt <= 5; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > cfg.RetryMaxDelay {
			t.Fatalf("attempt %d: delay %v out of range", attempt, d)
		}
	}
}
