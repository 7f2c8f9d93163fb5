package trace

import (
	"sort"
	"strings"
)

// Search returns the index of the last record at or before t, 0 when t
// precedes every record and -1 for an empty line.
func (l *Line) Search(t Time) int {
	if len(l.records) == 0 {
		return -1
	}
	i := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].Time > t
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// HasEventsIn reports whether the line shows any activity in [start, end).
func (l *Line) HasEventsIn(start, end Time) bool {
	if len(l.records) <= 1 {
		return false
	}
	first, last := l.Search(start), l.Search(end)
	if first != last {
		return true
	}

	r := l.records[first]
	if r.Kind == Stop || r.Kind == End {
		return false
	}
	if first+1 >= len(l.records) {
		return false
	}
	next := l.records[first+1]
	return r.Time < end && next.Time > start
}

// CounterDifference returns the time span and value delta between the
// samples bracketing [start, end].
func (l *Line) CounterDifference(start, end Time) (Time, float64) {
	if len(l.records) == 0 {
		return 0, 0
	}
	first, last := l.Search(start), l.Search(end)
	if l.records[last].Time < end && last+1 < len(l.records) {
		last++
	}
	a, b := l.records[first], l.records[last]
	return b.Time - a.Time, b.Value - a.Value
}

// AnnotationTextAt returns the text of the first annotations at or after t.
// Several annotations sharing that time are joined by newlines.
func (l *Line) AnnotationTextAt(t Time) (string, bool) {
	i := sort.Search(len(l.annotations), func(i int) bool {
		return l.annotations[i].Time >= t
	})
	if i >= len(l.annotations) {
		return "", false
	}

	at := l.annotations[i].Time
	var texts []string
	for ; i < len(l.annotations) && l.annotations[i].Time == at; i++ {
		if text := l.annotations[i].Text; text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}
	return strings.Join(texts, "\n"), true
}
