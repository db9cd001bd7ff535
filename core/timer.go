package core

import "math"

// ClockFrequency is the tick rate of the shared hardware counter, in ticks per second.
type ClockFrequency uint32

// Supported counter rates. The prescaled rates match the classic 16-bit compare
// timers; Clock1MHz is the RP2040/RP2350 microsecond timer.
const (
	Clock1MHz     ClockFrequency = 1000000
	Clock500kHz   ClockFrequency = 500000
	Clock250kHz   ClockFrequency = 250000
	Clock125kHz   ClockFrequency = 125000
	Clock62_500Hz ClockFrequency = 62500
	Clock15_625Hz ClockFrequency = 15625
)

// Valid reports whether f is one of the supported counter rates.
func (f ClockFrequency) Valid() bool {
	switch f {
	case Clock1MHz, Clock500kHz, Clock250kHz, Clock125kHz, Clock62_500Hz, Clock15_625Hz:
		return true
	}
	return false
}

const (
	// DefaultClock is the counter rate used when nothing else is configured
	DefaultClock = Clock250kHz

	// ChannelSettleUS separates the first deadline of consecutive channels
	// sharing one counter
	ChannelSettleUS = 100
)

var systemTicks uint32

// GetTime returns the current value of the shared counter
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the shared counter value (hardware sync and simulation)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TicksFromUS converts microseconds to counter ticks at freq
func TicksFromUS(us uint32, freq ClockFrequency) uint32 {
	return uint32((uint64(us) * uint64(freq)) / 1000000)
}

// TicksToUS converts counter ticks at freq to microseconds
func TicksToUS(ticks uint32, freq ClockFrequency) uint32 {
	return uint32((uint64(ticks) * 1000000) / uint64(freq))
}

// PeriodTicks converts a period in seconds to the nearest whole number of
// counter ticks at freq.
func PeriodTicks(seconds float64, freq ClockFrequency) uint32 {
	return uint32(math.Round(seconds * float64(freq)))
}

// PeriodSeconds is the inverse of PeriodTicks.
func PeriodSeconds(ticks uint32, freq ClockFrequency) float64 {
	return float64(ticks) / float64(freq)
}

// timerIsBefore compares two counter values across wraparound
func timerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ProcessTimers dispatches every software compare whose deadline has passed
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
