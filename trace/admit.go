package trace

func admitPlain(l *Line, kind EventKind, t Time, v float64) {
	l.push(kind, t, v)
}

// admitActivity collapses re-entrant activity into a clean
// Start (Suspend Resume)* Stop bracket per activation. Nested suspends only
// keep their outermost Suspend/Resume pair.
func admitActivity(l *Line, kind EventKind, t Time, v float64) {
	switch kind {
	case Start:
		if l.startDepth > 0 {
			return
		}
		l.push(Start, t, v)
		l.startDepth = 1

	case Stop:
		if l.startDepth == 0 {
			return
		}
		l.flushSuspend(t, v)
		l.push(Stop, t, v)
		l.startDepth = 0

	case Suspend:
		if l.startDepth == 0 {
			return
		}
		if l.suspendDepth == 0 {
			l.push(Suspend, t, v)
		}
		l.suspendDepth++

	case Resume:
		if l.suspendDepth == 0 {
			return
		}
		l.suspendDepth--
		if l.suspendDepth == 0 {
			l.push(Resume, t, v)
		}

	default:
		l.flushSuspend(t, v)
		l.push(kind, t, v)
	}
}

// flushSuspend closes a pending suspend with a synthesized Resume.
func (l *Line) flushSuspend(t Time, v float64) {
	if l.suspendDepth == 0 {
		return
	}
	l.suspendDepth = 0
	l.push(Resume, t, v)
}

// admitPort stores on the neighbouring queue line when there is one.
func admitPort(l *Line, kind EventKind, t Time, v float64) {
	if ch := l.Channel(); ch != nil {
		admitPlain(ch, kind, t, v)
		return
	}
	l.push(kind, t, v)
}
