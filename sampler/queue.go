package sampler

import "sync/atomic"

// QueueSize is the capacity of each command ring.
const QueueSize = 1024

// Op identifies a queued command.
type Op uint8

const (
	OpNone Op = iota
	OpPlayNote
	OpReleaseNote
	OpStopNote
	OpStopAllNotes
	OpReleaseAllNotes
	OpSetSustain
	OpSetPitchBend
	OpSetModulation
	OpSetExpression
	OpSetLevel
	OpSetBalance
	OpSetReverb
	OpSetChorus
	OpSetPitchBendFactor
	OpSetReverbRoomSize
	OpSetReverbDamping
	OpClearVoices
	OpQueryNotePlaying
	OpQueryPitchPlaying
	OpQueryInUse
	OpReply
)

// Command is a fixed-size message from the control side to the render
// thread, or a reply going back.
type Command struct {
	Op      Op
	Channel int
	A, B    float32
	Multi   *MultiInstrument
	Tag     uint64
}

// commandQueue is a single-producer single-consumer ring. The producer
// only advances tail and the consumer only advances head.
type commandQueue struct {
	buf  [QueueSize]Command
	head atomic.Uint64
	tail atomic.Uint64
}

// Push appends c and reports false when the ring is full.
func (q *commandQueue) Push(c Command) bool {
	t := q.tail.Load()
	if t-q.head.Load() >= QueueSize {
		return false
	}
	q.buf[t%QueueSize] = c
	q.tail.Store(t + 1)
	return true
}

// Pop removes the oldest command.
func (q *commandQueue) Pop() (Command, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return Command{}, false
	}
	slot := &q.buf[h%QueueSize]
	c := *slot
	slot.Multi = nil
	q.head.Store(h + 1)
	return c, true
}

// Len returns the number of queued commands.
func (q *commandQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
