package trace

import "math"

// Time in seconds since the start of the capture.
type Time float64

func (t Time) Min(b Time) Time {
	if t < b {
		return t
	}
	return b
}

func (t Time) Max(b Time) Time {
	if t > b {
		return t
	}
	return b
}

// TimeRange is a closed interval [Start, Finish].
type TimeRange struct {
	Start  Time
	Finish Time
}

var InvalidRange = TimeRange{
	Start:  Time(math.Inf(1)),
	Finish: Time(math.Inf(-1)),
}

func (a TimeRange) Duration() Time {
	return a.Finish - a.Start
}

func (a TimeRange) IsValid() bool { return a.Finish >= a.Start }

func (a TimeRange) Less(b TimeRange) bool {
	if a.Start == b.Start {
		return a.Finish < b.Finish
	}
	return a.Start < b.Start
}

func (a TimeRange) Expand(b TimeRange) TimeRange {
	return TimeRange{
		Start:  a.Start.Min(b.Start),
		Finish: a.Finish.Max(b.Finish),
	}
}

func (a TimeRange) Contains(t Time) bool {
	return a.Start <= t && t <= a.Finish
}

// Clip returns the intersection of a and b, which may be invalid.
func (a TimeRange) Clip(b TimeRange) TimeRange {
	return TimeRange{
		Start:  a.Start.Max(b.Start),
		Finish: a.Finish.Min(b.Finish),
	}
}

// Overlap returns the length of the intersection of a and b, or 0.
func (a TimeRange) Overlap(b TimeRange) Time {
	c := a.Clip(b)
	if c.Finish <= c.Start {
		return 0
	}
	return c.Duration()
}
