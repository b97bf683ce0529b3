package gesture

import (
	"sort"
	"time"
)

// Scheduler runs delayed continuations on the recognizer's thread. The
// returned function cancels the continuation if it has not run yet.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// ManualScheduler is a virtual clock with timers that fire only when the
// clock is advanced. It drives replays and tests deterministically.
type ManualScheduler struct {
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	at  time.Time
	seq uint64
	f   func()
}

// NewManualScheduler starts the virtual clock at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Time {
	return s.now
}

// AfterFunc schedules f at Now()+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() {
	s.seq++
	t := &manualTimer{at: s.now.Add(d), seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return func() { s.remove(t) }
}

// Advance moves the clock forward by d, firing due timers in time order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.now.Add(d))
}

// AdvanceTo moves the clock to t, firing due timers in time order. Timers
// scheduled by fired callbacks also fire if they are due.
func (s *ManualScheduler) AdvanceTo(t time.Time) {
	for {
		next := s.nextDue(t)
		if next == nil {
			break
		}
		s.remove(next)
		if next.at.After(s.now) {
			s.now = next.at
		}
		next.f()
	}
	if t.After(s.now) {
		s.now = t
	}
}

// Pending returns the number of timers not yet fired or cancelled.
func (s *ManualScheduler) Pending() int {
	return len(s.timers)
}

func (s *ManualScheduler) nextDue(t time.Time) *manualTimer {
	if len(s.timers) == 0 {
		return nil
	}
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})
	if s.timers[0].at.After(t) {
		return nil
	}
	return s.timers[0]
}

func (s *ManualScheduler) remove(t *manualTimer) {
	for i, o := range s.timers {
		if o == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}
