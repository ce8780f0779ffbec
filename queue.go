package edfsim

import (
	"container/heap"
	"strings"
)

type queued struct {
	t   *Task
	seq uint64 // admission order, breaks deadline ties
}

// min-heap of task instances keyed by absolute deadline; equal deadlines leave in the order
// they were enqueued
type taskHeap []queued

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].t.deadline == h[j].t.deadline {
		return h[i].seq < h[j].seq
	}
	return h[i].t.before(h[j].t)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(queued))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = queued{}
	*h = old[0 : n-1]
	return x
}

type Queue struct {
	q   taskHeap
	seq uint64
}

func newQueue() *Queue {
	return &Queue{q: make(taskHeap, 0)}
}

func (q *Queue) String() string {
	names := make([]string, 0, len(q.q))
	for _, e := range q.q {
		names = append(names, e.t.String())
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func (q *Queue) enq(t *Task) {
	q.seq += 1
	heap.Push(&q.q, queued{t, q.seq})
}

// removes and returns the earliest-deadline task, or nil when empty
func (q *Queue) deq() *Task {
	if len(q.q) == 0 {
		return nil
	}
	return heap.Pop(&q.q).(queued).t
}

func (q *Queue) peek() *Task {
	if len(q.q) == 0 {
		return nil
	}
	return q.q[0].t
}

func (q *Queue) qlen() int {
	return len(q.q)
}

// tasks in heap order (not sorted)
func (q *Queue) getQ() []*Task {
	tasks := make([]*Task, 0, len(q.q))
	for _, e := range q.q {
		tasks = append(tasks, e.t)
	}
	return tasks
}

// removes every task matching pred and restores the heap, returning the removed tasks
func (q *Queue) removeIf(pred func(*Task) bool) []*Task {
	removed := make([]*Task, 0)
	kept := q.q[:0]
	for _, e := range q.q {
		if pred(e.t) {
			removed = append(removed, e.t)
		} else {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(q.q); i++ {
		q.q[i] = queued{}
	}
	q.q = kept
	heap.Init(&q.q)
	return removed
}
