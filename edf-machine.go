package edfsim

import (
	"github.com/go-logr/logr"
)

// a single processor scheduled earliest-deadline-first. every task instance is in exactly one
// of pending, readyQ or the running slot.
type EDFMachine struct {
	currTick  Ttick
	readyQ    *Queue
	pending   []*Task // not yet released, in the order they were re-armed
	running   *Task
	numMissed int
	log       logr.Logger
}

func newEDFMachine(log logr.Logger) *EDFMachine {
	return &EDFMachine{
		currTick: 0,
		readyQ:   newQueue(),
		pending:  make([]*Task, 0),
		running:  nil,
		log:      log,
	}
}

func (m *EDFMachine) String() string {
	running := "idle"
	if m.running != nil {
		running = m.running.String()
	}
	return "@" + m.currTick.String() + " running: " + running + " ready: " + m.readyQ.String()
}

func (m *EDFMachine) addPeriodicTask(t *Task) {
	m.pending = append(m.pending, t)
}

// moves every released pending task to the ready queue, in pending order. an arrival with a
// strictly earlier deadline than the running task preempts it; once the slot is empty the
// rest of the batch is only enqueued.
func (m *EDFMachine) admitArrivals(now Ttick) {
	arrived := make([]*Task, 0)
	stillPending := make([]*Task, 0, len(m.pending))
	for _, t := range m.pending {
		if t.nextArrival <= now {
			arrived = append(arrived, t)
		} else {
			stillPending = append(stillPending, t)
		}
	}
	m.pending = stillPending

	for _, t := range arrived {
		m.log.V(1).Info("task arrived", "tick", now, "task", t.name, "deadline", t.deadline)
		m.readyQ.enq(t)
		if m.running != nil && t.before(m.running) {
			m.log.V(1).Info("preempting", "tick", now, "task", m.running.name, "for", t.name)
			m.readyQ.enq(m.running)
			m.running = nil
		}
	}
}

// removes every ready task whose deadline is strictly before now and counts it as missed.
// the running task is never checked.
func (m *EDFMachine) retireMissed(now Ttick) []*Task {
	missed := m.readyQ.removeIf(func(t *Task) bool {
		return t.deadline < now
	})
	for _, t := range missed {
		m.log.V(1).Info("missed deadline", "tick", now, "task", t.name, "deadline", t.deadline)
		t.misses += 1
	}
	m.numMissed += len(missed)
	return missed
}

// the task to run this tick: the running task if the slot is taken, otherwise the
// earliest-deadline ready task (removed from the queue), or nil when there is none
func (m *EDFMachine) dispatch() *Task {
	if m.running != nil {
		return m.running
	}
	return m.readyQ.deq()
}

func (m *EDFMachine) advance(ticks Ttick) {
	m.currTick += ticks
}

// ready tasks plus the running one
func (m *EDFMachine) considered() []*Task {
	tasks := m.readyQ.getQ()
	if m.running != nil {
		tasks = append(tasks, m.running)
	}
	return tasks
}
