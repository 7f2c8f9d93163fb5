package trace

import "math"

type EventKind uint8

const (
	Start EventKind = iota
	Stop
	Suspend
	Resume
	Event
	End
)

func (k EventKind) String() string {
	switch k {
	case Start:
		return "Start"
	case Stop:
		return "Stop"
	case Suspend:
		return "Suspend"
	case Resume:
		return "Resume"
	case Event:
		return "Event"
	case End:
		return "End"
	default:
		return "Unknown"
	}
}

// NoPeer marks a record without a matching counterpart.
const NoPeer = -1

// Record is a single timestamped sample on a line.
//
// Value is interpreted per line category: the raw sample during admission,
// afterwards the corrected counter value, the queue depth, the event sequence
// number or the activation color. Peer links an opening record to its closing
// record and back.
type Record struct {
	Kind  EventKind
	Time  Time
	Value float64
	Peer  int
}

const packShift = 1 << 32

// Packed encodes the record payload as a single value*2^32 + peer word.
func (r Record) Packed() float64 {
	peer := r.Peer
	if peer < 0 {
		peer = 0
	}
	return math.Trunc(r.Value)*packShift + float64(uint32(peer))
}

// Unpack splits a packed payload into its high part and peer index.
func Unpack(v float64) (high int64, peer int) {
	high = int64(math.Floor(v / packShift))
	peer = int(v - float64(high)*packShift)
	return high, peer
}
