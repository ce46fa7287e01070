package reminder

import (
	"errors"
)

type fakeClock struct{ tick int64 }

func (c *fakeClock) CurrentTick() int64 { return c.tick }

type fakeQuests map[int]Quest

func (q fakeQuests) FindQuest(id int) (Quest, bool) {
	v, ok := q[id]
	return v, ok
}

type panicQuests struct{ bad int }

func (p panicQuests) FindQuest(id int) (Quest, bool) {
	if id == p.bad {
		panic("resolver exploded")
	}
	return Quest{ID: id, ExpiryTick: 1000}, true
}

type fakeSink struct {
	sent   []Notification
	pauses int
	// failFirst makes the first n Send calls return an error.
	failFirst int
	onSend    func(n Notification)
}

var errSinkDown = errors.New("sink down")

func (s *fakeSink) Send(n Notification) error {
	if s.onSend != nil {
		s.onSend(n)
	}
	if s.failFirst > 0 {
		s.failFirst--
		return errSinkDown
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *fakeSink) RequestPause() { s.pauses++ }

func newTestEnv(tick int64) (Env, *fakeClock, fakeQuests, *fakeSink) {
	c := &fakeClock{tick: tick}
	q := fakeQuests{}
	s := &fakeSink{}
	return Env{Clock: c, Quests: q, Sink: s}, c, q, s
}
