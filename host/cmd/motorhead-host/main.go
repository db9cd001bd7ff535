package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motorhead/host/link"
	"motorhead/host/logger"
	"motorhead/host/serial"
	"motorhead/host/sim"
	"motorhead/standalone"
	"motorhead/standalone/config"
)

var (
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud       = flag.Int("baud", serial.DefaultBaud, "Baud rate (ignored for USB CDC)")
	simulate   = flag.Bool("sim", false, "Drive an in-process simulated head instead of a device")
	configPath = flag.String("config", "", "Head configuration JSON for -sim")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile    = flag.String("log-file", "", "Rotating log file (empty = stderr only)")
	watch      = flag.Bool("watch", false, "Print status lines as they arrive")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := connect(ctx)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	defer l.Close()

	go func() {
		if err := l.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("link stopped: %v", err)
		}
	}()

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	bounds, err := l.WaitReady(readyCtx)
	cancel()
	if err != nil {
		logger.Fatalf("%v", err)
	}

	r := newREPL(l, os.Stdout)
	r.watch.Store(*watch)
	go r.printEvents(l.Events())

	fmt.Println("motorhead host. Type 'help' for commands.")
	r.printBounds(bounds)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if quit := r.exec(scanner.Text()); quit {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Errorf("read input: %v", err)
	}
}

// connect opens the device, or starts a simulated head on an in-memory pipe
func connect(ctx context.Context) (*link.Link, error) {
	if !*simulate {
		logger.Infof("connecting to %s", *device)
		return link.Dial(*device, *baud)
	}

	cfg := config.DefaultHeadConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			return nil, err
		}
	}

	mgr, err := standalone.NewManagerWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := mgr.Initialize(standalone.Options{}); err != nil {
		return nil, err
	}

	hostEnd, boardEnd := serial.Pipe()
	s := sim.New(mgr, boardEnd, sim.DefaultOptions())
	go func() {
		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("simulated head stopped: %v", err)
		}
	}()
	logger.Infof("simulating %d axes, frame %s", mgr.AxisCount(), mgr.Shape())
	return link.New(hostEnd), nil
}
