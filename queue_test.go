package edfsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withDeadline(name string, dl Ttick) *Task {
	t := mkTask(name, 1, 10)
	t.deadline = dl
	return t
}

func TestQueueOrder(t *testing.T) {
	q := newQueue()
	assert.Nil(t, q.deq())
	assert.Nil(t, q.peek())

	for _, dl := range []Ttick{50, 10, 30, 20, 40} {
		q.enq(withDeadline(dl.String(), dl))
	}
	assert.Equal(t, 5, q.qlen())
	assert.Equal(t, Ttick(10), q.peek().deadline)

	got := make([]Ttick, 0)
	for q.qlen() > 0 {
		got = append(got, q.deq().deadline)
	}
	assert.Equal(t, []Ttick{10, 20, 30, 40, 50}, got)
	assert.Nil(t, q.deq())
}

func TestQueueTiesLeaveInEnqueueOrder(t *testing.T) {
	q := newQueue()
	q.enq(withDeadline("a", 20))
	q.enq(withDeadline("b", 20))
	q.enq(withDeadline("early", 5))
	q.enq(withDeadline("c", 20))

	names := make([]string, 0)
	for q.qlen() > 0 {
		names = append(names, q.deq().name)
	}
	assert.Equal(t, []string{"early", "a", "b", "c"}, names)
}

func TestQueueRemoveIf(t *testing.T) {
	q := newQueue()
	for _, dl := range []Ttick{5, 15, 3, 25, 8} {
		q.enq(withDeadline(dl.String(), dl))
	}

	removed := q.removeIf(func(t *Task) bool { return t.deadline < 10 })
	assert.Len(t, removed, 3)
	assert.Equal(t, 2, q.qlen())
	assert.Len(t, q.getQ(), 2)
	assert.Equal(t, Ttick(15), q.deq().deadline)
	assert.Equal(t, Ttick(25), q.deq().deadline)

	assert.Empty(t, q.removeIf(func(t *Task) bool { return true }))
}
