// gotemp is the temperature monitor daemon. It talks to the sensor bridge
// over a serial port (or a simulated device with --mock), polls the active
// sensors, and accepts settings patches on stdin, one per line:
//
//	network {"enabled":1,"assignment":"dhcp"}
//	sensors/0 {"name":"Boiler","active":1}
//	save
//	readings
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/itohio/gotemp/pkg/config"
	"github.com/itohio/gotemp/pkg/device"
	"github.com/itohio/gotemp/pkg/logging"
	"github.com/itohio/gotemp/pkg/monitor"
	"github.com/itohio/gotemp/pkg/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		port       string
		storeRoot  string
		logLevel   string
		useMock    bool
		listPorts  bool
	)

	flagSet := pflag.NewFlagSet("gotemp", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "config.yaml", "Configuration file path")
	flagSet.StringVarP(&port, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	flagSet.StringVar(&storeRoot, "store", "", "Directory holding the persisted settings (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flagSet.BoolVar(&useMock, "mock", false, "Use mocked device instead of serial port")
	flagSet.BoolVar(&listPorts, "list-ports", false, "List serial ports and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if listPorts {
		ports, err := device.Ports()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port != "" {
		cfg.Serial.Port = port
	}
	if storeRoot != "" {
		cfg.Store.Root = storeRoot
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}

	st, err := store.NewDir(cfg.Store.Root)
	if err != nil {
		return err
	}

	var dev device.Device
	if useMock {
		dev = device.NewMock(&cfg.Mock)
	} else {
		dev = device.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.Timeout, log)
	}
	if err := dev.Connect(); err != nil {
		return fmt.Errorf("failed to connect to device: %w", err)
	}
	defer dev.Close()

	mon := monitor.New(cfg, dev, st, log)
	report := mon.Boot()
	if report.Dropped > 0 {
		log.Warn().Int("dropped", report.Dropped).Msg("some sensors did not fit the registry")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := serveCommands(ctx, os.Stdin, os.Stdout, mon, log); err != nil {
			log.Warn().Str("reason", err.Error()).Msg("command input closed")
		}
	}()

	log.Info().
		Str("port", cfg.Serial.Port).
		Bool("mock", useMock).
		Str("store", st.Root()).
		Dur("interval", cfg.Sampling.Interval).
		Msg("monitor running")

	err = mon.Run(ctx)

	// keep whatever was patched since the last tick
	if saveErr := mon.SaveModified(); saveErr != nil {
		log.Error().Str("reason", saveErr.Error()).Msg("failed to save settings on shutdown")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
