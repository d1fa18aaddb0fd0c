package topology

import (
	"container/heap"
	"math/rand"
)

// entry orders an item by priority; the queue pops the smallest priority.
type entry[T any] struct {
	item     T
	priority float64
}

type minQueue[T any] []entry[T]

func (q minQueue[T]) Len() int           { return len(q) }
func (q minQueue[T]) Less(i, j int) bool { return q[i].priority < q[j].priority }
func (q minQueue[T]) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *minQueue[T]) Push(x any) {
	*q = append(*q, x.(entry[T]))
}

func (q *minQueue[T]) Pop() any {
	old := *q
	n := len(old)
	out := old[n-1]
	*q = old[:n-1]
	return out
}

// newShuffledQueue shuffles entries before heapifying so that equal
// priorities pop in random rather than insertion order.
func newShuffledQueue[T any](rng *rand.Rand, entries []entry[T]) *minQueue[T] {
	rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
	q := minQueue[T](entries)
	heap.Init(&q)
	return &q
}

func (q *minQueue[T]) pop() T {
	return heap.Pop(q).(entry[T]).item
}
