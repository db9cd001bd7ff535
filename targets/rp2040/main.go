//go:build rp2040

package main

import (
	"machine"
	"time"

	"motorhead/core"
	"motorhead/protocol"
	"motorhead/standalone"
	"motorhead/standalone/config"
	piostepper "motorhead/targets/pio"
)

var (
	inputBuffer *protocol.FifoBuffer
	manager     *standalone.Manager

	// Debug counters
	msgerrors                uint32
	consecutiveWriteFailures uint32
)

// ledBlink blinks the LED a specific number of times for diagnostics
func ledBlink(count int, period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < count; i++ {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}

// fatal blinks the LED forever
func fatal() {
	for {
		ledBlink(1, 100*time.Millisecond)
	}
}

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	UpdateSystemTime()

	core.SetDebugWriter(func(s string) {
		USBWriteBytes([]byte(s + protocol.LineEnd))
	})

	piostepper.InitSteppers()

	cfg := config.DefaultHeadConfig()
	cfg.ClockHz = uint32(Clock)

	var err error
	manager, err = standalone.NewManagerWithConfig(cfg)
	if err != nil {
		fatal()
	}
	err = manager.Initialize(standalone.Options{
		Compare: NewAlarm,
		Backend: piostepper.NewBackend,
	})
	if err != nil {
		fatal()
	}

	inputBuffer = protocol.NewFifoBuffer(256)

	// Give the host time to open the port before the banner
	ledBlink(3, 200*time.Millisecond)

	if err := manager.Start(); err != nil {
		fatal()
	}
	writeUSB()

	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			for {
				b, ok := inputBuffer.ReadByte()
				if !ok {
					break
				}
				// Errors are already answered on the channel
				manager.ProcessByte(b)
			}

			// Ticks run from the timer alarms, not the software timer list
			manager.Poll()
			writeUSB()
		}()

		time.Sleep(50 * time.Microsecond)
	}
}

// usbReaderLoop moves USB bytes into the input FIFO
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}
			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
			}
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB sends pending manager output. A disconnected host drops it.
func writeUSB() {
	result := manager.GetOutput()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				consecutiveWriteFailures = 0
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
}
