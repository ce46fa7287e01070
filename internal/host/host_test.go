package host

import (
	"errors"
	"sync"
	"testing"

	"questminder/internal/reminder"
	logx "questminder/pkg/logx"
)

var (
	_ reminder.Clock         = (*Clock)(nil)
	_ reminder.QuestResolver = (*QuestBoard)(nil)
)

func TestClockAdvanceAndPause(t *testing.T) {
	c := NewClock(100, logx.Nop())
	if got := c.Advance(10); got != 110 {
		t.Fatalf("advance: got %d", got)
	}
	if got := c.Advance(-5); got != 110 {
		t.Fatalf("negative advance must be ignored, got %d", got)
	}
	c.RequestPause()
	c.RequestPause()
	if !c.Paused() || c.PauseRequests() != 2 {
		t.Fatalf("paused=%v requests=%d", c.Paused(), c.PauseRequests())
	}
	if got := c.Advance(10); got != 110 {
		t.Fatalf("paused clock moved to %d", got)
	}
	c.Resume()
	if got := c.Advance(10); got != 120 {
		t.Fatalf("resumed advance: got %d", got)
	}
}

func TestClockConcurrentAdvance(t *testing.T) {
	c := NewClock(0, logx.Logger{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Advance(1)
			}
		}()
	}
	wg.Wait()
	if c.CurrentTick() != 800 {
		t.Fatalf("got %d", c.CurrentTick())
	}
}

func TestQuestBoardLifecycle(t *testing.T) {
	b := NewQuestBoard(logx.Nop())
	if err := b.Offer(1, " Escort ", 500); err != nil {
		t.Fatal(err)
	}
	if err := b.Offer(1, "again", 600); !errors.Is(err, ErrQuestExists) {
		t.Fatalf("expected ErrQuestExists, got %v", err)
	}
	if err := b.Offer(0, "bad", 1); err == nil {
		t.Fatal("expected error for id 0")
	}
	q, ok := b.FindQuest(1)
	if !ok || q.Label != "Escort" || q.State != reminder.QuestAwaitingDecision {
		t.Fatalf("unexpected quest %+v", q)
	}

	if err := b.Extend(1, 900); err != nil {
		t.Fatal(err)
	}
	if q, _ := b.FindQuest(1); q.ExpiryTick != 900 {
		t.Fatalf("extend: %+v", q)
	}
	if err := b.Decide(1, true); err != nil {
		t.Fatal(err)
	}
	if err := b.Decide(1, false); !errors.Is(err, ErrQuestDecided) {
		t.Fatalf("expected ErrQuestDecided, got %v", err)
	}
	if err := b.Extend(2, 1); !errors.Is(err, ErrQuestNotFound) {
		t.Fatalf("expected ErrQuestNotFound, got %v", err)
	}
	if !b.Remove(1) || b.Remove(1) {
		t.Fatal("remove should succeed exactly once")
	}
}

func TestQuestBoardSweep(t *testing.T) {
	b := NewQuestBoard(logx.Nop())
	_ = b.Offer(3, "c", 100)
	_ = b.Offer(1, "a", 50)
	_ = b.Offer(2, "b", 500)
	_ = b.Offer(4, "d", 10)
	_ = b.Decide(4, false)

	got := b.Sweep(100)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("swept %v", got)
	}
	if q, _ := b.FindQuest(3); q.State != reminder.QuestExpired {
		t.Fatalf("quest 3: %v", q.State)
	}
	if q, _ := b.FindQuest(4); q.State != reminder.QuestRejected {
		t.Fatalf("decided quest must keep its state: %v", q.State)
	}
	if again := b.Sweep(100); len(again) != 0 {
		t.Fatalf("second sweep: %v", again)
	}
	list := b.List()
	if len(list) != 4 || list[0].ID != 1 || list[3].ID != 4 {
		t.Fatalf("list: %+v", list)
	}
}

func TestClockAdvanceTo(t *testing.T) {
	c := NewClock(500, logx.Nop())
	c.Pause()
	if got := c.AdvanceTo(800); got != 800 {
		t.Fatalf("got %d", got)
	}
	if got := c.AdvanceTo(100); got != 800 {
		t.Fatalf("clock moved backwards to %d", got)
	}
}
