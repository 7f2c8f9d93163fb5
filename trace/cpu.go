package trace

// CPU describes the processor a line was captured on.
type CPU struct {
	ID   int
	Name string
	// ClockRate and MemClockRate are in Hz, 0 when unknown.
	ClockRate    float64
	MemClockRate float64
}

// Cycles converts a duration into processor cycles.
func (cpu *CPU) Cycles(d Time) float64 {
	if cpu == nil {
		return 0
	}
	return float64(d) * cpu.ClockRate
}

// CycleTime converts processor cycles into a duration.
func (cpu *CPU) CycleTime(cycles float64) Time {
	if cpu == nil || cpu.ClockRate == 0 {
		return 0
	}
	return Time(cycles / cpu.ClockRate)
}

// MemCycleTime converts memory bus cycles into a duration.
func (cpu *CPU) MemCycleTime(cycles float64) Time {
	if cpu == nil || cpu.MemClockRate == 0 {
		return 0
	}
	return Time(cycles / cpu.MemClockRate)
}
