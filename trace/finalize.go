package trace

// counterWrap is the range of the 32-bit hardware counters.
const counterWrap = 1 << 32

// finalizeActivity cross-links every Start/Stop and Suspend/Resume pair and
// closes whatever is still open at end.
//
// The color of an activation is the most recent Color annotation at or before
// its Start. Both records of the bracket carry the color as value.
func finalizeActivity(l *Line, end Time) {
	type open struct {
		index int
		color float64
	}
	var stack []open

	var color float64
	next := 0
	for i := range l.records {
		r := &l.records[i]
		switch r.Kind {
		case Start:
			for ; next < len(l.annotations) && l.annotations[next].Time <= r.Time; next++ {
				if a := l.annotations[next]; a.Kind == Color {
					color = a.Value
				}
			}
			stack = append(stack, open{index: i, color: color})

		case Suspend:
			var c float64
			if len(stack) > 0 {
				c = stack[len(stack)-1].color
			}
			stack = append(stack, open{index: i, color: c})

		case Stop, Resume:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			l.closeBracket(top.index, i, top.color)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kind := Stop
		if l.records[top.index].Kind == Suspend {
			kind = Resume
		}
		i := l.push(kind, end, top.color)
		l.closeBracket(top.index, i, top.color)
	}

	l.startDepth, l.suspendDepth = 0, 0
	l.pushEnd(end)
}

func (l *Line) closeBracket(opening, closing int, color float64) {
	l.link(opening, closing)
	l.records[opening].Value = color
	l.records[closing].Value = color

	if l.records[opening].Kind != Start {
		return
	}
	if d := l.records[closing].Time - l.records[opening].Time; d > l.maxSampleDuration {
		l.maxSampleDuration = d
	}
}

// finalizeEvents numbers every Start and mirrors the number onto its Stop.
func finalizeEvents(l *Line, end Time) {
	var open []int
	seq := 0
	for i := range l.records {
		r := &l.records[i]
		switch r.Kind {
		case Start:
			seq++
			r.Value = float64(seq)
			open = append(open, i)
		case Stop:
			if len(open) == 0 {
				r.Value = 0
				continue
			}
			k := open[len(open)-1]
			open = open[:len(open)-1]
			r.Value = l.records[k].Value
			l.link(k, i)
		}
	}
	l.pushEnd(end)
}

// unwrap turns raw 32-bit readings into a non-decreasing sequence.
//
// A reading below the previous corrected value is taken as a single wrap of
// the hardware counter; more than one wrap between two readings cannot be
// told apart from one.
func unwrap(l *Line) {
	var bias, prev float64
	for i := range l.records {
		r := &l.records[i]
		v := r.Value + bias
		if v < prev {
			bias += counterWrap
			v += counterWrap
		}
		r.Value = v
		prev = v
	}
}

// finalizeCounter corrects the readings and tracks the largest increment.
func finalizeCounter(l *Line, end Time) {
	unwrap(l)
	for i := 1; i < len(l.records); i++ {
		prev, r := l.records[i-1], l.records[i]
		if d := r.Value - prev.Value; d > l.maxSampleValue {
			l.maxSampleValue = d
		}
		if d := r.Time - prev.Time; d > l.maxSampleDuration {
			l.maxSampleDuration = d
		}
	}
	l.pushEnd(end)
}

// finalizeValues corrects the readings and tracks the highest level.
func finalizeValues(l *Line, end Time) {
	unwrap(l)
	for i, r := range l.records {
		if i == 0 || r.Value > l.maxSampleValue {
			l.maxSampleValue = r.Value
		}
	}
	l.pushEnd(end)
}

// finalizeQueue replays the signed deltas into a fifo depth and pairs every
// enqueue with the dequeue that drains it, first in first out.
func finalizeQueue(l *Line, end Time) {
	var depth float64
	var pending []int
	for i := range l.records {
		r := &l.records[i]
		switch r.Kind {
		case Start, Stop:
			depth += r.Value
			if depth < 0 {
				depth = 0
			}
			if depth > l.maxSampleValue {
				l.maxSampleValue = depth
			}
			r.Value = depth

			if r.Kind == Start {
				pending = append(pending, i)
			} else if len(pending) > 0 {
				l.link(pending[0], i)
				pending = pending[1:]
			}
		default:
			r.Value = depth
		}
	}
	l.pushEnd(end)
}

func finalizePlain(l *Line, end Time) {
	l.pushEnd(end)
}
