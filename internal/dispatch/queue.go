package dispatch

import (
	"container/heap"
	"sync"

	"github.com/ordervox/ordervox/pkg/types"
)

// queuedCommand pairs a command with the domain context captured when it was
// accepted. seq preserves FIFO order among equal priorities.
type queuedCommand struct {
	cmd  *types.Command
	dctx types.DomainContext
	seq  uint64
}

// commandHeap orders by priority ascending (CRITICAL first), then seq.
type commandHeap []*queuedCommand

func (h commandHeap) Len() int { return len(h) }

func (h commandHeap) Less(i, j int) bool {
	if h[i].cmd.Priority != h[j].cmd.Priority {
		return h[i].cmd.Priority < h[j].cmd.Priority
	}
	return h[i].seq < h[j].seq
}

func (h commandHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commandHeap) Push(x interface{}) {
	*h = append(*h, x.(*queuedCommand))
}

func (h *commandHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// CommandQueue is the bounded priority queue behind the queued strategy.
// Higher-priority commands overtake lower-priority ones; equal priorities
// run in arrival order.
type CommandQueue struct {
	mu       sync.Mutex
	heap     commandHeap
	capacity int
	nextSeq  uint64
}

// NewCommandQueue creates a queue with the given capacity.
func NewCommandQueue(capacity int) *CommandQueue {
	q := &CommandQueue{capacity: capacity}
	heap.Init(&q.heap)
	return q
}

// Enqueue accepts a command and returns its 1-based position, or false when
// the queue is full.
func (q *CommandQueue) Enqueue(cmd *types.Command, dctx types.DomainContext) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) >= q.capacity {
		return 0, false
	}
	q.nextSeq++
	heap.Push(&q.heap, &queuedCommand{cmd: cmd, dctx: dctx, seq: q.nextSeq})
	return len(q.heap), true
}

// Dequeue removes and returns the highest-priority command, or false when the
// queue is empty.
func (q *CommandQueue) Dequeue() (*types.Command, types.DomainContext, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil, types.DomainContext{}, false
	}
	item := heap.Pop(&q.heap).(*queuedCommand)
	return item.cmd, item.dctx, true
}

// DropSession removes every queued command for the session and returns how
// many were dropped. Used by the cancel intent.
func (q *CommandQueue) DropSession(sessionID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.heap[:0]
	dropped := 0
	for _, item := range q.heap {
		if item.cmd.SessionID == sessionID {
			dropped++
		} else {
			kept = append(kept, item)
		}
	}
	q.heap = kept
	heap.Init(&q.heap)
	return dropped
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
