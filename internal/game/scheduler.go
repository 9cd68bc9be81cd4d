package game

import (
	"container/heap"
	"time"
)

// Scheduler runs deferred actions against the simulation clock. Every
// delayed effect of the game (countdown seconds, wreck removal, bomb blink
// and tick cues, staggered bot spawns) is an event here, so Reset drops all
// of them together when a round is torn down.
type Scheduler struct {
	tick   uint64
	seq    uint64
	events eventQueue
}

type scheduledEvent struct {
	at     uint64
	seq    uint64
	action func()
}

// NewScheduler returns a scheduler positioned at tick 0.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Tick returns the current simulation tick.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// Now returns the simulation time of the current tick.
func (s *Scheduler) Now() time.Duration {
	return time.Duration(s.tick) * TickInterval
}

// After schedules action to run once delay has elapsed. The delay is
// rounded up to whole ticks and is never shorter than one tick.
func (s *Scheduler) After(delay time.Duration, action func()) {
	ticks := uint64((delay + TickInterval - 1) / TickInterval)
	if ticks == 0 {
		ticks = 1
	}
	s.At(s.tick+ticks, action)
}

// At schedules action for an absolute tick. Past ticks fire on the next
// Advance.
func (s *Scheduler) At(tick uint64, action func()) {
	s.seq++
	heap.Push(&s.events, scheduledEvent{at: tick, seq: s.seq, action: action})
}

// Advance moves the clock one tick forward and runs every event that is
// due, in the order it was scheduled.
func (s *Scheduler) Advance() {
	s.tick++
	for s.events.Len() > 0 && s.events[0].at <= s.tick {
		ev := heap.Pop(&s.events).(scheduledEvent)
		ev.action()
	}
}

// Reset drops all pending events. The clock keeps running.
func (s *Scheduler) Reset() {
	s.events = nil
}

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int {
	return s.events.Len()
}

type eventQueue []scheduledEvent

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(scheduledEvent)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	*q = old[:n-1]
	return ev
}
