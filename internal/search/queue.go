package search

import "container/heap"

// state is one node of a best-first search.
type state struct {
	g      float64 // bottleneck utility of path
	h      float64 // heuristic of the last applied service
	path   []int   // candidate positions
	used   bitset  // over candidates
	params bitset  // over the parameter universe
	key    string  // params.key()
}

type queueItem struct {
	priority float64
	seq      uint64
	state    *state
}

// stateQueue is a max-heap on priority. Equal priorities pop in insertion
// order, which keeps runs deterministic.
type stateQueue []*queueItem

func (q stateQueue) Len() int { return len(q) }

func (q stateQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q stateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *stateQueue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *stateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// frontier wraps stateQueue with sequence numbering.
type frontier struct {
	q   stateQueue
	seq uint64
}

func (f *frontier) push(s *state, priority float64) {
	heap.Push(&f.q, &queueItem{priority: priority, seq: f.seq, state: s})
	f.seq++
}

func (f *frontier) pop() *state {
	return heap.Pop(&f.q).(*queueItem).state
}

func (f *frontier) len() int {
	return f.q.Len()
}
