package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"go.bug.st/serial"

	"github.com/Bucknalla/go-vessel-simulator/internal/logging"
	"github.com/Bucknalla/go-vessel-simulator/vessel"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

type options struct {
	config      vessel.Config
	route       string
	logLevel    string
	showVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "vessel-simulator: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	opts := options{config: vessel.DefaultConfig()}
	config := &opts.config

	fs := flag.NewFlagSet("vessel-simulator", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&opts.showVersion, "version", false, "Show version information and exit")
	fs.Var(&config.Start, "start", `Start position as "lat, lng" (decimal degrees)`)
	fs.Var(&config.End, "end", `End position as "lat, lng" (decimal degrees)`)
	fs.Float64Var(&config.SpeedKmH, "speed", config.SpeedKmH, "Vessel speed in km/h")
	fs.Float64Var(&config.RefreshRateHz, "rate", config.RefreshRateHz, "Position updates per second (Hz)")
	fs.BoolVar(&config.SnapToEnd, "snap", config.SnapToEnd, "Emit one final update exactly at the end position")
	fs.StringVar(&opts.route, "route", "", "GPX file whose first and last points replace -start and -end")
	fs.StringVar(&config.SerialPort, "serial", "", "Serial port for NMEA output (e.g., /dev/ttyUSB0, COM1)")
	fs.IntVar(&config.BaudRate, "baud", config.BaudRate, "Serial port baud rate")
	fs.BoolVar(&config.Quiet, "quiet", false, "Suppress info messages (only output NMEA data)")
	fs.BoolVar(&config.GPXEnabled, "gpx", false, "Generate GPX track file with timestamp-based filename")
	fs.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error, off)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: vessel-simulator [options]\n")
		fmt.Fprintf(stderr, "\nVessel NMEA0183 Simulator\n")
		fmt.Fprintf(stderr, "Moves a vessel along a straight leg at constant speed and outputs NMEA sentences.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.showVersion {
		if Version != "dev" {
			fmt.Fprintf(stdout, "v%s\n", Version)
		} else {
			fmt.Fprintf(stdout, "%s\n", Commit)
		}
		return nil
	}

	config := opts.config
	level := opts.logLevel
	if config.Quiet {
		level = "error"
	}
	// Log to stderr so it doesn't interfere with NMEA output
	logger, err := logging.New("vessel", stderr, level)
	if err != nil {
		return err
	}

	if opts.route != "" {
		start, end, err := vessel.ReadLegFile(opts.route)
		if err != nil {
			return fmt.Errorf("failed to read route %s: %w", opts.route, err)
		}
		config.Start, config.End = start, end
		logger.Infof("route loaded from %s", opts.route)
	}

	if config.GPXEnabled {
		config.GPXFile = fmt.Sprintf("%s.gpx", time.Now().Format("20060102_150405"))
	}

	if err := config.Validate(); err != nil {
		return err
	}

	nmeaWriter, closeOutput, err := openOutput(config, stdout, logger)
	if err != nil {
		return err
	}
	defer closeOutput()

	simulator, err := vessel.NewSimulator(config, vessel.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create vessel simulator: %w", err)
	}
	simulator.SetNMEAWriter(nmeaWriter)

	logPlan(logger, config, simulator.GetStatus().Plan)

	if err := simulator.Start(); err != nil {
		return fmt.Errorf("failed to start vessel simulator: %w", err)
	}

	select {
	case <-simulator.Done():
	case <-ctx.Done():
		if err := simulator.Stop(); err != nil && !errors.Is(err, vessel.ErrSimulatorNotRunning) {
			return err
		}
	}

	status := simulator.GetStatus()
	logger.Infof("finished: %s after %d updates at %s", status.State.Phase, status.State.StepIndex, status.State.Position)
	return nil
}

// openOutput returns the NMEA sink, a serial port when configured
func openOutput(config vessel.Config, stdout io.Writer, logger *log.Logger) (io.Writer, func(), error) {
	if config.SerialPort == "" {
		return stdout, func() {}, nil
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(config.SerialPort, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open serial port %s: %w", config.SerialPort, err)
	}
	logger.Infof("opened serial port: %s at %d baud", config.SerialPort, config.BaudRate)

	return port, func() {
		if err := port.Close(); err != nil {
			logger.Warnf("failed to close serial port: %v", err)
		}
	}, nil
}

func logPlan(logger *log.Logger, config vessel.Config, plan vessel.Plan) {
	logger.Infof("start: %s", plan.Start)
	logger.Infof("end: %s", plan.End)
	logger.Infof("distance: %.3f km", plan.DistanceKm)
	logger.Infof("speed: %.1f km/h, duration %s", plan.SpeedKmH,
		time.Duration(plan.DurationSeconds*float64(time.Second)).Round(time.Millisecond))
	logger.Infof("updates: %d at %.1f Hz, heading %.2f, course %.1f",
		plan.Ticks, plan.RefreshRateHz, plan.HeadingDegrees, plan.CourseDegrees)
	if config.SerialPort != "" {
		logger.Infof("NMEA output: %s (%d baud)", config.SerialPort, config.BaudRate)
	} else {
		logger.Infof("NMEA output: stdout")
	}
	if config.GPXEnabled {
		logger.Infof("GPX output: %s", config.GPXFile)
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
