package events

import (
	"errors"
	"sync"
)

const defaultBufferCapacity = 1000

var ErrBufferFull = errors.New("event buffer is full")

type message struct {
	Kind string
	Data []byte
	next *message
}

// buffer is a bounded FIFO of pending messages.
type buffer struct {
	lock     sync.Mutex
	head     *message
	tail     *message
	size     int
	capacity int
}

func newBuffer(capacity int) *buffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &buffer{capacity: capacity}
}

func (b *buffer) PushBack(msg *message) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.size >= b.capacity {
		return ErrBufferFull
	}

	if b.head == nil {
		b.head = msg
		b.tail = msg
	} else {
		b.tail.next = msg
		b.tail = msg
	}
	b.size++

	return nil
}

func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.head == nil {
		return nil
	}
	tmp := b.head
	b.head = tmp.next
	if b.head == nil {
		b.tail = nil
	}
	tmp.next = nil
	b.size--
	return tmp
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.size
}
