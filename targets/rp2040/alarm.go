//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"runtime/interrupt"

	"motorhead/core"
)

// The TinyGo runtime sleeps on ALARM0, so tick channels get ALARM1..3.
const firstAlarm = 1

var errNoAlarm = errors.New("rp2040: no free timer alarm")

// Alarm is a core.CompareUnit on one RP2040 timer alarm
type Alarm struct {
	index uint8
	mask  uint32
	irq   interrupt.Interrupt
	fire  func()
}

var alarms [4]*Alarm

// NewAlarm returns the compare unit for tick channel i. It matches
// standalone.CompareFactory.
func NewAlarm(i int) (core.CompareUnit, error) {
	idx := i + firstAlarm
	if idx >= len(alarms) {
		return nil, errNoAlarm
	}
	if alarms[idx] != nil {
		return alarms[idx], nil
	}

	a := &Alarm{index: uint8(idx), mask: 1 << uint(idx)}
	// interrupt.New needs constant IRQ numbers and handlers
	switch idx {
	case 1:
		a.irq = interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) { alarms[1].service() })
	case 2:
		a.irq = interrupt.New(rp.IRQ_TIMER_IRQ_2, func(interrupt.Interrupt) { alarms[2].service() })
	case 3:
		a.irq = interrupt.New(rp.IRQ_TIMER_IRQ_3, func(interrupt.Interrupt) { alarms[3].service() })
	}
	alarms[idx] = a
	return a, nil
}

func (a *Alarm) Bind(fire func()) {
	a.fire = fire
}

func (a *Alarm) Enable() {
	rp.TIMER.INTR.Set(a.mask)
	rp.TIMER.INTE.SetBits(a.mask)
	a.irq.SetPriority(0x00)
	a.irq.Enable()
}

func (a *Alarm) Disable() {
	rp.TIMER.INTE.ClearBits(a.mask)
	rp.TIMER.ARMED.Set(a.mask)
	rp.TIMER.INTR.Set(a.mask)
}

// Set arms the alarm ticks after the current counter value
func (a *Alarm) Set(ticks uint32) {
	a.write(GetHardwareTime() + ticks)
}

// Writing an ALARM register arms it
func (a *Alarm) write(m uint32) {
	switch a.index {
	case 1:
		rp.TIMER.ALARM1.Set(m)
	case 2:
		rp.TIMER.ALARM2.Set(m)
	case 3:
		rp.TIMER.ALARM3.Set(m)
	}
}

func (a *Alarm) service() {
	rp.TIMER.INTR.Set(a.mask)
	UpdateSystemTime()
	if a.fire != nil {
		a.fire()
	}
}
