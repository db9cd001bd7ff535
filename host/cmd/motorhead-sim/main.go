package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"motorhead/core"
	"motorhead/host/logger"
	"motorhead/host/serial"
	"motorhead/host/sim"
	"motorhead/standalone"
	"motorhead/standalone/config"
)

var (
	configPath = flag.String("config", "", "Head configuration JSON (default: pan + rotary head)")
	speed      = flag.Float64("speed", 1, "Virtual seconds per real second, 0 = unthrottled")
	stepUS     = flag.Uint("step-us", 1000, "Virtual time advanced per loop iteration (us)")
	exitOnEOF  = flag.Bool("exit-on-eof", false, "Exit once stdin is closed and all axes are at rest")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile    = flag.String("log-file", "", "Rotating log file (empty = stderr only)")
	debug      = flag.Bool("debug", false, "Route firmware debug output and the timing ring to the log")
)

func main() {
	flag.Parse()

	logger.InitLogger(logger.Config{
		Level:      logger.ParseLevel(*logLevel),
		File:       *logFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	})
	defer logger.Sync()

	cfg := config.DefaultHeadConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Fatalf("read config: %v", err)
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			logger.Fatalf("load config %s: %v", *configPath, err)
		}
	}

	if *debug {
		core.SetDebugWriter(logger.FirmwareWriter())
		core.SetDebugEnabled(true)
		defer core.DumpTimingRing()
	}

	mgr, err := standalone.NewManagerWithConfig(cfg)
	if err != nil {
		logger.Fatalf("create manager: %v", err)
	}
	if err := mgr.Initialize(standalone.Options{}); err != nil {
		logger.Fatalf("initialize manager: %v", err)
	}
	logger.Infof("simulating %d axes, frame %s, %d Hz counter", mgr.AxisCount(), mgr.Shape(), cfg.ClockHz)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sim.New(mgr, serial.NewStreamPort(os.Stdin, os.Stdout), sim.Options{
		StepUS:    uint32(*stepUS),
		Speed:     *speed,
		ExitOnEOF: *exitOnEOF,
	})
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("simulation stopped: %v", err)
	}

	frames, rejected := mgr.Stats()
	logger.Infof("done: %d frames applied, %d rejected, %d steps", frames, rejected, core.GetTotalStepCount())
	if dropped := mgr.DroppedLines(); dropped > 0 {
		logger.Warnf("%d output lines dropped", dropped)
	}
}
