package core

// SoftCompare is a CompareUnit emulated with the software timer list. Host
// builds and the simulator use it; matches are delivered by ProcessTimers.
type SoftCompare struct {
	timer   Timer
	match   uint32
	enabled bool
	queued  bool
	fire    func()
}

// NewSoftCompare creates a disabled software compare unit
func NewSoftCompare() *SoftCompare {
	c := &SoftCompare{}
	c.timer.Handler = c.handle
	return c
}

// Bind installs the match callback
func (c *SoftCompare) Bind(fire func()) {
	c.fire = fire
}

// Enable starts delivering matches
func (c *SoftCompare) Enable() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	c.enabled = true
	if !c.queued {
		c.timer.WakeTime = c.match
		insertTimer(&c.timer)
		c.queued = true
	}
}

// Disable stops delivering matches
func (c *SoftCompare) Disable() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	c.enabled = false
	if c.queued {
		removeTimer(&c.timer)
		c.queued = false
	}
}

// Set places the next match ticks after the current counter value
func (c *SoftCompare) Set(ticks uint32) {
	c.setMatch(GetTime() + ticks)
}

// Match returns the pending match value
func (c *SoftCompare) Match() uint32 {
	return c.match
}

func (c *SoftCompare) setMatch(m uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	c.match = m
	if c.queued {
		removeTimer(&c.timer)
		c.queued = false
	}
	if c.enabled {
		c.timer.WakeTime = m
		insertTimer(&c.timer)
		c.queued = true
	}
}

func (c *SoftCompare) handle(t *Timer) uint8 {
	c.queued = false
	if c.enabled && c.fire != nil {
		c.fire()
	}
	return SF_DONE
}
