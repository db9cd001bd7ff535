package standalone

import (
	"errors"
	"strconv"

	"motorhead/core"
	"motorhead/protocol"
	"motorhead/standalone/config"
)

var (
	ErrAlreadyInitialized = errors.New("standalone: already initialized")
	ErrNotInitialized     = errors.New("standalone: manager not initialized")
)

// CompareFactory returns the compare unit for axis i. Platforms with
// hardware alarms provide one; the default is core.SoftCompare.
type CompareFactory func(i int) (core.CompareUnit, error)

// BackendFactory returns the step output for one configured axis. Without
// one the manager falls back to core.NewStepperBackend.
type BackendFactory func(i int, axis config.AxisConfig) (core.StepperBackend, error)

// Options select the platform pieces the manager drives
type Options struct {
	Compare CompareFactory
	Backend BackendFactory
}

// Manager owns the axes, the tick scheduler and the command channel of one
// head
type Manager struct {
	config *config.HeadConfig
	shape  protocol.FrameShape

	sched  *core.Scheduler
	axes   []*core.Axis
	rotary []bool

	// Serial interface
	lines   *protocol.LineBuffer
	output  protocol.OutputBuffer
	scratch []byte
	echo    [core.MaxAxes]protocol.AxisEcho
	status  [core.MaxAxes]protocol.AxisStatus

	statusTicks uint32
	lastStatus  uint32

	frames   uint32
	rejected uint32

	initialized bool
	running     bool
}

// NewManager creates a manager from a JSON head configuration
func NewManager(configData []byte) (*Manager, error) {
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewManagerWithConfig(cfg)
}

// NewManagerWithConfig creates a manager with an existing config
func NewManagerWithConfig(cfg *config.HeadConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shape, err := cfg.Shape()
	if err != nil {
		return nil, err
	}

	return &Manager{
		config:  cfg,
		shape:   shape,
		sched:   core.NewScheduler(),
		lines:   protocol.NewLineBuffer(cfg.LineBuffer),
		scratch: make([]byte, 0, protocol.OutputMax),
	}, nil
}

// Initialize builds the axes and binds each one to a compare channel
func (m *Manager) Initialize(opts Options) error {
	if m.initialized {
		return ErrAlreadyInitialized
	}

	if err := m.sched.Configure(m.config.Clock()); err != nil {
		return err
	}
	freq := m.sched.Frequency()

	for i, axisCfg := range m.config.Axes {
		var backend core.StepperBackend
		switch {
		case axisCfg.Backend == config.BackendNull:
			backend = core.NullBackend{}
		case opts.Backend != nil:
			b, err := opts.Backend(i, axisCfg)
			if err != nil {
				return err
			}
			backend = b
		default:
			backend = core.NewStepperBackend()
		}

		c := axisCfg.Core()
		axis, err := core.NewAxis(uint8(i), c, backend)
		if err != nil {
			return err
		}

		var unit core.CompareUnit
		if opts.Compare != nil {
			if unit, err = opts.Compare(i); err != nil {
				return err
			}
		} else {
			unit = core.NewSoftCompare()
		}

		period := core.PeriodTicks(c.TickPeriod, freq)
		if _, err := m.sched.Attach(unit, period, axis.Tick); err != nil {
			return err
		}

		m.axes = append(m.axes, axis)
		m.rotary = append(m.rotary, axisCfg.Rotary)
		core.DebugPrintln("[HEAD] axis " + strconv.Itoa(i) + " " + axisCfg.Name +
			" period=" + strconv.Itoa(int(period)) + " backend=" + axis.Backend().GetName())
	}

	m.statusTicks = core.TicksFromUS(m.config.StatusIntervalMS*1000, freq)
	m.initialized = true
	return nil
}

// Start sends the banner and startup report, then arms every tick channel
func (m *Manager) Start() error {
	if !m.initialized {
		return ErrNotInitialized
	}

	m.SendInfo(protocol.Banner)
	m.sendStartupReport()

	m.sched.ArmAll()
	m.lastStatus = core.GetTime()
	m.running = true
	return nil
}

// ProcessByte feeds one byte of the command channel. Errors are already
// answered on the channel; they are returned for logging only.
func (m *Manager) ProcessByte(b byte) error {
	line, err := m.lines.Feed(b)
	if err != nil {
		m.rejected++
		m.SendInfo(protocol.ReplyLineTooLong)
		return err
	}
	if line == nil {
		return nil
	}
	return m.ProcessLine(line)
}

// ProcessLine applies one command frame and echoes the result. A frame
// with the wrong field count changes nothing.
func (m *Manager) ProcessLine(line []byte) error {
	if !m.initialized {
		return ErrNotInitialized
	}

	frame, err := protocol.ParseFrame(line, m.shape)
	if err != nil {
		m.rejected++
		m.SendInfo(protocol.ReplyWrongFields)
		return err
	}

	m.apply(frame)
	m.frames++
	m.sendEcho()
	return nil
}

// apply writes the frame to the axes in field order, linear then rotary
func (m *Manager) apply(f protocol.Frame) {
	m.applyAxis(0, f.Linear)
	if m.shape.Axes() > 1 {
		m.applyAxis(1, f.Rotary)
	}
}

func (m *Manager) applyAxis(i int, fields protocol.AxisFields) {
	req := core.MoveRequest{
		Kind:         core.MoveLinear,
		Target:       fields.Target,
		MaxVelocity:  fields.MaxVelocity,
		Acceleration: fields.Acceleration,
		KeepAccel:    !fields.HasAccel,
	}
	if m.rotary[i] {
		req.Kind = core.MoveModulo
		req.Mode = rotaryMode(fields.Mode)
	}

	if !m.axes[i].ApplyMove(req) {
		core.DebugPrintln("[HEAD] axis " + strconv.Itoa(i) + " refused modulo move")
	}
}

// rotaryMode maps the frame's mode field. Values outside the defined set
// use the shortest path.
func rotaryMode(v int32) core.RotaryMode {
	switch v {
	case 0:
		return core.RotaryShortest
	case 1:
		return core.RotaryCW
	case 2:
		return core.RotaryCCW
	}
	core.DebugPrintln("[HEAD] unknown rotary mode " + strconv.Itoa(int(v)) + ", using shortest")
	return core.RotaryShortest
}

// Poll runs the non-interrupt housekeeping: the periodic status line and
// renormalization of rotary axes that are at rest. Call it from the main
// loop.
func (m *Manager) Poll() {
	if !m.running {
		return
	}

	now := core.GetTime()
	if now-m.lastStatus < m.statusTicks {
		return
	}
	m.lastStatus += m.statusTicks
	if now-m.lastStatus >= m.statusTicks {
		// Fell more than a period behind
		m.lastStatus = now
	}

	for i, axis := range m.axes {
		if m.rotary[i] && !axis.IsRunning() {
			axis.Renormalize()
		}
	}
	m.sendStatus()
}

func (m *Manager) sendEcho() {
	n := m.shape.Axes()
	for i := 0; i < n; i++ {
		a := m.axes[i]
		target := a.TargetDeg()
		if m.rotary[i] {
			target = a.StepsToDeg(float64(core.Mod(a.TargetSteps(), a.StepsPerRev())))
		}
		m.echo[i] = protocol.AxisEcho{
			Running:      a.IsRunning(),
			Target:       target,
			MaxVelocity:  a.MaxVelocityDeg(),
			Acceleration: a.AccelerationDeg(),
		}
	}
	m.scratch = protocol.AppendEcho(m.scratch[:0], m.echo[:n])
	m.queue(m.scratch)
}

func (m *Manager) sendStatus() {
	for i, a := range m.axes {
		pos := a.PositionDeg()
		if m.rotary[i] {
			pos = a.PositionModuloDeg()
		}
		m.status[i] = protocol.AxisStatus{
			Running:  a.IsRunning(),
			Position: pos,
			Speed:    a.SpeedDeg(),
		}
	}
	m.scratch = protocol.AppendStatus(m.scratch[:0], m.status[:len(m.axes)])
	m.queue(m.scratch)
}

func (m *Manager) sendStartupReport() {
	bounds := make([]protocol.AxisBounds, len(m.axes))
	for i, a := range m.axes {
		l := a.LimitsDeg()
		bounds[i] = protocol.AxisBounds{
			MinPosition: l.MinPosition,
			MaxPosition: l.MaxPosition,
			VelocityMin: l.VelocityMin,
			VelocityMax: l.VelocityMax,
			AccelMin:    l.AccelMin,
			AccelMax:    l.AccelMax,
		}
	}
	m.scratch = protocol.AppendStartup(m.scratch[:0], bounds)
	m.queue(m.scratch)
}

// SendInfo queues an "I:" line
func (m *Manager) SendInfo(msg string) {
	m.scratch = protocol.AppendInfo(m.scratch[:0], msg)
	m.queue(m.scratch)
}

// queue stores one formatted line. A line that does not fit is dropped
// whole and counted, so the host never reads half a line.
func (m *Manager) queue(line []byte) {
	if _, err := m.output.Write(line); err != nil {
		core.DebugPrintln("[HEAD] output full, line dropped")
	}
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	if m.output.Len() == 0 {
		return nil
	}

	output := make([]byte, m.output.Len())
	copy(output, m.output.Bytes())
	m.output.Reset()
	return output
}

// Home declares the current position of every axis as zero. It only
// succeeds when all axes are at rest.
func (m *Manager) Home() bool {
	for _, a := range m.axes {
		if a.IsRunning() {
			return false
		}
	}
	for _, a := range m.axes {
		if !a.HomePosition() {
			return false
		}
	}
	return true
}

// Stop ramps every axis down to the closest reachable position
func (m *Manager) Stop() {
	for _, a := range m.axes {
		a.Stop()
	}
}

// EmergencyStop halts every axis without ramping
func (m *Manager) EmergencyStop() {
	for _, a := range m.axes {
		a.Halt()
	}
}

// Shutdown disarms the tick channels
func (m *Manager) Shutdown() {
	m.sched.DisarmAll()
	m.running = false
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	return m.running
}

// Axis returns axis i, or nil
func (m *Manager) Axis(i int) *core.Axis {
	if i < 0 || i >= len(m.axes) {
		return nil
	}
	return m.axes[i]
}

// AxisCount returns the number of configured axes
func (m *Manager) AxisCount() int {
	return len(m.axes)
}

// Scheduler returns the tick scheduler
func (m *Manager) Scheduler() *core.Scheduler {
	return m.sched
}

// Shape returns the accepted frame shape
func (m *Manager) Shape() protocol.FrameShape {
	return m.shape
}

// Stats returns the number of applied and rejected lines
func (m *Manager) Stats() (frames, rejected uint32) {
	return m.frames, m.rejected
}

// DroppedLines returns how many output lines were lost to a full buffer
// because GetOutput was not called often enough
func (m *Manager) DroppedLines() uint32 {
	return m.output.Dropped()
}
