package core

import "errors"

// MaxChannels is the number of compare channels one scheduler can drive
const MaxChannels = 4

var (
	ErrSchedulerArmed   = errors.New("scheduler: counter already in use by an armed channel")
	ErrUnsupportedClock = errors.New("scheduler: unsupported clock frequency")
	ErrTooManyChannels  = errors.New("scheduler: no free compare channel")
)

// CompareUnit is one hardware compare register matched against the shared
// counter. Implementations exist per physical unit (RP2040 timer alarms,
// SoftCompare for host builds).
type CompareUnit interface {
	// Enable unmasks the unit's match interrupt
	Enable()

	// Disable masks the unit's match interrupt
	Disable()

	// Set places the next match ticks after the current counter value
	Set(ticks uint32)

	// Bind installs the function run from the unit's match interrupt
	Bind(fire func())
}

// Channel binds a periodic callback to one compare unit. On every match the
// channel re-arms relative to the counter value at firing, so the period is
// kept independent of how long the callback runs.
type Channel struct {
	sched  *Scheduler
	index  uint8
	unit   CompareUnit
	period uint32
	onFire func()
	armed  bool
	fires  uint32
}

// Arm schedules the first callback periodTicks from now and keeps the
// channel firing every periodTicks. A zero period is invalid configuration
// and is not checked here.
func (c *Channel) Arm(periodTicks uint32) {
	c.armAfter(periodTicks, periodTicks)
}

func (c *Channel) armAfter(firstTicks, periodTicks uint32) {
	state := disableInterrupts()
	c.period = periodTicks
	c.unit.Set(firstTicks)
	c.unit.Enable()
	c.armed = true
	c.sched.armed = true
	restoreInterrupts(state)

	RecordTiming(EvtArm, c.index, GetTime(), firstTicks, periodTicks)
}

// Disarm stops the channel
func (c *Channel) Disarm() {
	state := disableInterrupts()
	c.unit.Disable()
	c.armed = false
	restoreInterrupts(state)
}

// OnFire replaces the callback run on every match
func (c *Channel) OnFire(cb func()) {
	state := disableInterrupts()
	c.onFire = cb
	restoreInterrupts(state)
}

// SetPeriod changes the period used from the next re-arm on
func (c *Channel) SetPeriod(periodTicks uint32) {
	state := disableInterrupts()
	c.period = periodTicks
	restoreInterrupts(state)
}

// Period returns the channel period in counter ticks
func (c *Channel) Period() uint32 {
	return c.period
}

// Armed reports whether the channel is running
func (c *Channel) Armed() bool {
	return c.armed
}

// Fires returns how many times the channel has fired
func (c *Channel) Fires() uint32 {
	return c.fires
}

// Index returns the channel number within its scheduler
func (c *Channel) Index() uint8 {
	return c.index
}

// fire runs from the compare unit's match interrupt
func (c *Channel) fire() {
	if !c.armed {
		return
	}
	c.unit.Set(c.period)
	c.fires++
	if c.onFire != nil {
		c.onFire()
	}
}

// Scheduler owns the shared counter configuration and the channels driven
// from it.
type Scheduler struct {
	freq       ClockFrequency
	configured bool
	armed      bool
	channels   [MaxChannels]Channel
	count      uint8
}

// NewScheduler returns a scheduler running at DefaultClock until Configure
// is called
func NewScheduler() *Scheduler {
	return &Scheduler{freq: DefaultClock}
}

// Configure selects the shared counter rate. It must run before any
// channel is armed.
func (s *Scheduler) Configure(freq ClockFrequency) error {
	if s.armed {
		return ErrSchedulerArmed
	}
	if !freq.Valid() {
		return ErrUnsupportedClock
	}
	s.freq = freq
	s.configured = true
	return nil
}

// Frequency returns the shared counter rate
func (s *Scheduler) Frequency() ClockFrequency {
	return s.freq
}

// SettleTicks is the stagger between the first deadlines of consecutive
// channels
func (s *Scheduler) SettleTicks() uint32 {
	return TicksFromUS(ChannelSettleUS, s.freq)
}

// Attach binds a compare unit to a new channel. The channel is not armed.
func (s *Scheduler) Attach(unit CompareUnit, periodTicks uint32, onFire func()) (*Channel, error) {
	if s.count >= MaxChannels {
		return nil, ErrTooManyChannels
	}

	ch := &s.channels[s.count]
	*ch = Channel{
		sched:  s,
		index:  s.count,
		unit:   unit,
		period: periodTicks,
		onFire: onFire,
	}
	unit.Bind(ch.fire)
	s.count++
	return ch, nil
}

// Channel returns channel i, or nil
func (s *Scheduler) Channel(i int) *Channel {
	if i < 0 || i >= int(s.count) {
		return nil
	}
	return &s.channels[i]
}

// Count returns the number of attached channels
func (s *Scheduler) Count() int {
	return int(s.count)
}

// ArmAll arms every attached channel with its own period. Channel i gets
// its first deadline i*SettleTicks later than channel 0.
func (s *Scheduler) ArmAll() {
	settle := s.SettleTicks()
	for i := uint8(0); i < s.count; i++ {
		ch := &s.channels[i]
		ch.armAfter(ch.period+uint32(i)*settle, ch.period)
	}
}

// DisarmAll stops every channel and releases the counter configuration
func (s *Scheduler) DisarmAll() {
	for i := uint8(0); i < s.count; i++ {
		s.channels[i].Disarm()
	}
	s.armed = false
}
