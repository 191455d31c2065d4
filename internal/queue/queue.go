// Package queue contains a generic FIFO queue whose mutations can be observed by subscribers.
package queue

// EventType identifies the mutation that produced an Event.
type EventType string

const (
	EventEnqueued EventType = "enqueued"
	EventDequeued EventType = "dequeued"
	EventCleared  EventType = "cleared"
)

// Event is delivered to every subscriber after a mutation of the queue.
// Item is the zero value for EventCleared.
type Event[T any] struct {
	Type EventType
	Item T
}

type node[T any] struct {
	data T
	next *node[T]
}

type subscriber[T any] struct {
	id       int
	callback func(Event[T])
}

// Queue is a singly linked FIFO queue. It is not safe for concurrent use, the owner is expected
// to serialize access. Subscribers are called synchronously from the mutating method and must not
// call back into the owner of the queue.
type Queue[T any] struct {
	head *node[T]
	tail *node[T]
	size int

	subscribers []subscriber[T]
	nextSubID   int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends the item to the tail of the queue.
func (q *Queue[T]) Enqueue(item T) {
	n := &node[T]{data: item}
	if q.tail == nil {
		q.head = n
		q.tail = n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.size++
	q.emit(Event[T]{Type: EventEnqueued, Item: item})
}

// Dequeue removes and returns the head of the queue. The boolean is false when the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	if q.head == nil {
		var zero T
		return zero, false
	}
	n := q.head
	q.head = n.next
	n.next = nil
	q.size--
	if q.head == nil {
		q.tail = nil
	}
	q.emit(Event[T]{Type: EventDequeued, Item: n.data})
	return n.data, true
}

// Peek returns the head of the queue without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if q.head == nil {
		var zero T
		return zero, false
	}
	return q.head.data, true
}

func (q *Queue[T]) IsEmpty() bool {
	return q.head == nil
}

func (q *Queue[T]) Size() int {
	return q.size
}

// Clear drops every item and emits a single EventCleared. The dropped items are returned in FIFO
// order so that the owner can settle anything waiting on them.
func (q *Queue[T]) Clear() []T {
	dropped := make([]T, 0, q.size)
	for n := q.head; n != nil; n = n.next {
		dropped = append(dropped, n.data)
	}
	q.head = nil
	q.tail = nil
	q.size = 0
	q.emit(Event[T]{Type: EventCleared})
	return dropped
}

// Subscribe registers a callback invoked on every event. The returned function removes the
// subscription, calling it more than once has no effect.
func (q *Queue[T]) Subscribe(callback func(Event[T])) func() {
	id := q.nextSubID
	q.nextSubID++
	q.subscribers = append(q.subscribers, subscriber[T]{id: id, callback: callback})
	return func() {
		for i, s := range q.subscribers {
			if s.id == id {
				q.subscribers = append(q.subscribers[:i:i], q.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (q *Queue[T]) emit(event Event[T]) {
	for _, s := range q.subscribers {
		s.callback(event)
	}
}
