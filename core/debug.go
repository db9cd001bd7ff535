package core

// Debug output and the timing ring. Both are safe to call from the tick
// interrupt: the ring never allocates, and debug lines are only formatted
// when a writer is enabled.

// DebugWriter receives one debug line without terminator
type DebugWriter func(string)

// Motion event codes stored in the timing ring
const (
	EvtArm      = 1 // channel armed (v1=first deadline offset, v2=period)
	EvtRetarget = 2 // target changed (v1=old, v2=new)
	EvtReverse  = 3 // decel-only branch reached zero velocity (v1=position)
	EvtArrive   = 4 // arrival (v1=position, v2=1 on a hard stop)
	EvtHome     = 5 // position zeroed
	EvtHalt     = 6 // abrupt stop (v1=position)
)

// TimingRingSize is how many of the latest events survive for a dump
const TimingRingSize = 32

// TimingEvent is one motion event
type TimingEvent struct {
	EventType uint8
	OID       uint8 // axis or channel index
	Clock     uint32
	Value1    uint32
	Value2    uint32
}

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8 // next slot to overwrite, i.e. the oldest entry
)

// SetDebugWriter redirects debug output (USB on the board, the logger on
// the host)
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled turns DebugPrintln on or off. Off by default.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes msg when debug output is enabled
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming stores an event, overwriting the oldest one
func RecordTiming(eventType, oid uint8, clock, value1, value2 uint32) {
	timingRing[timingRingHead] = TimingEvent{
		EventType: eventType,
		OID:       oid,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (timingRingHead + 1) % TimingRingSize
}

func eventName(t uint8) string {
	switch t {
	case EvtArm:
		return "ARM"
	case EvtRetarget:
		return "RETARGET"
	case EvtReverse:
		return "REVERSE"
	case EvtArrive:
		return "ARRIVE"
	case EvtHome:
		return "HOME"
	case EvtHalt:
		return "HALT!"
	}
	return "UNKNOWN"
}

// DumpTimingRing writes the ring oldest first, regardless of
// SetDebugEnabled. Call it after motion stops, not from the tick.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	debugPrintln("[TIMING] Total steps emitted: " + utoa(GetTotalStepCount()))
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := &timingRing[(timingRingHead+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		debugPrintln("[TIMING] " + eventName(evt.EventType) +
			" axis=" + itoa(int(evt.OID)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + itoa(int(int32(evt.Value1))) +
			" v2=" + itoa(int(int32(evt.Value2))))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing empties the ring
func ClearTimingRing() {
	timingRing = [TimingRingSize]TimingEvent{}
	timingRingHead = 0
}
