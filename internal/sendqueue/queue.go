// Package sendqueue streams a payload to a transport that pulls one packet at a time.
package sendqueue

import (
	"sync"

	"ble_gateway/internal/codes"
)

// DefaultPacketSize is the default BLE ATT payload (23 byte MTU minus header).
const DefaultPacketSize = 20

// Result tells the caller what DrainNext produced.
type Result int

const (
	// Noop means the stream already ended; nothing must be sent.
	Noop Result = iota
	// Packet means the returned bytes are the next packet.
	Packet
	// EndOfStream means the returned bytes are the EOF sentinel.
	EndOfStream
)

func (r Result) String() string {
	switch r {
	case Packet:
		return "packet"
	case EndOfStream:
		return "eof"
	default:
		return "noop"
	}
}

// Queue is a FIFO of packets followed by a single EOF per fill cycle.
type Queue struct {
	mu      sync.Mutex
	packets [][]byte
	eofSent bool
}

func New() *Queue {
	return &Queue{}
}

// EnqueueMany appends packets and re-arms the EOF sentinel.
func (q *Queue) EnqueueMany(packets ...[]byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range packets {
		cp := make([]byte, len(p))
		copy(cp, p)
		q.packets = append(q.packets, cp)
	}
	q.eofSent = false
}

// Replace discards whatever is queued and starts a new fill cycle.
func (q *Queue) Replace(packets ...[]byte) {
	q.Reset()
	q.EnqueueMany(packets...)
}

// DrainNext pops the head packet. Once the queue is empty it yields the EOF
// sentinel exactly once, then Noop until the queue is refilled.
func (q *Queue) DrainNext() ([]byte, Result) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.packets) > 0 {
		p := q.packets[0]
		q.packets[0] = nil
		q.packets = q.packets[1:]
		return p, Packet
	}

	if !q.eofSent {
		q.eofSent = true
		return codes.EOF(), EndOfStream
	}
	return nil, Noop
}

func (q *Queue) Reset() {
	q.mu.Lock()
	q.packets = nil
	q.eofSent = false
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}

// Snapshot copies the queued packets in order.
func (q *Queue) Snapshot() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([][]byte, len(q.packets))
	for i, p := range q.packets {
		out[i] = append([]byte(nil), p...)
	}
	return out
}
