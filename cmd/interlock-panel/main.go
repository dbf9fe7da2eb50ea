// Command interlock-panel runs the interlock front panel: it polls the
// buttons and encoder, drives the menu on the LCD, simulates interlock
// lines through the GPIO expander and publishes read-only telemetry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/interlock-panel/internal/auxtab"
	"github.com/sweeney/interlock-panel/internal/backlight"
	"github.com/sweeney/interlock-panel/internal/config"
	"github.com/sweeney/interlock-panel/internal/display"
	"github.com/sweeney/interlock-panel/internal/expander"
	"github.com/sweeney/interlock-panel/internal/gpio"
	"github.com/sweeney/interlock-panel/internal/hold"
	"github.com/sweeney/interlock-panel/internal/interlock"
	"github.com/sweeney/interlock-panel/internal/logic"
	"github.com/sweeney/interlock-panel/internal/mqtt"
	"github.com/sweeney/interlock-panel/internal/panel"
	"github.com/sweeney/interlock-panel/internal/status"
	"github.com/sweeney/interlock-panel/internal/storage"
	"github.com/sweeney/interlock-panel/internal/web"
)

// reportInterval is how often the status tracker is refreshed.
const reportInterval = time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	logLevel := flag.String("log-level", "info", "Log level: error, warn, info, debug")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	headless := flag.Bool("headless", false, "Run with simulated hardware")
	i2cBus := flag.String("i2c-bus", "1", "I2C bus name")
	printState := flag.Bool("print-state", false, "Print the interlock lines and exit")

	flag.Parse()

	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			o.LogLevel = logLevel
		case "http":
			o.HTTPAddr = httpAddr
		case "broker":
			o.Broker = broker
		case "headless":
			o.Headless = headless
		case "i2c-bus":
			o.I2CBus = i2cBus
		}
	})

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	level, _ := config.ParseLogLevel(cfg.Logging.Level)
	logger := config.NewLogger(level, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, *printState, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string, o config.FlagOverrides) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// hardware is the set of devices the panel drives.
type hardware struct {
	reader    gpio.Reader
	regs      expander.Registers
	mem       storage.Memory
	backlight backlight.Controller
	prober    auxtab.Prober
	closers   []func() error
}

func (h *hardware) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}

func openHardware(cfg config.Config, logger *slog.Logger) (*hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2C.Bus, err)
	}
	hw := &hardware{
		regs:    expander.NewTCA9555(bus, cfg.I2C.ExpanderAddr),
		mem:     storage.NewEEPROM(bus, cfg.I2C.EEPROMAddr, hold.RealClock{}),
		prober:  auxtab.BusProber{Bus: bus},
		closers: []func() error{bus.Close},
	}

	if cfg.I2C.Backlight == "auto" {
		bl, err := backlight.Detect(bus)
		if err != nil {
			logger.Warn("backlight not found, brightness disabled", "err", err)
		} else {
			logger.Info("backlight found", "addr", fmt.Sprintf("0x%02X", bl.Addr()))
			hw.backlight = bl
		}
	}

	reader, err := gpio.NewRealReader(cfg.Pins())
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	hw.reader = reader
	hw.closers = append(hw.closers, reader.Close)
	return hw, nil
}

// simulatedHardware returns in-memory devices for bench runs. The fault
// and reset lines float high, as with pull-ups and no interlock rack.
func simulatedHardware() *hardware {
	reader := gpio.NewFakeReader(nil)
	return &hardware{
		reader:    reader,
		regs:      expander.NewFake(),
		mem:       storage.NewFakeMemory(storage.EEPROMSize, storage.EEPROMPage),
		backlight: &backlight.Fake{},
		prober:    auxtab.FakeProber{expander.DefaultAddr: true, storage.DefaultAddr: true, backlight.AddrLow: true},
		closers:   []func() error{reader.Close},
	}
}

func run(cfg config.Config, printState bool, logger *slog.Logger) error {
	var hw *hardware
	if cfg.Headless {
		logger.Info("headless mode, using simulated hardware without front-panel input")
		hw = simulatedHardware()
	} else {
		var err error
		if hw, err = openHardware(cfg, logger); err != nil {
			return err
		}
	}
	defer hw.Close()

	if printState {
		return printLines(os.Stdout, hw.regs)
	}

	// MQTT telemetry
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewRealPublisher(mqtt.Options{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID, Logger: logger})
		if err != nil {
			logger.Warn("mqtt unavailable, telemetry disabled", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			defer client.Close()
			q := mqtt.NewQueue(client, mqtt.DefaultQueueCapacity, logger)
			defer q.Close()
			publisher, mqttStatus = q, q
		}
	}

	fb := display.NewFramebuffer(display.Width, display.Height)
	p := panel.New(cfg.PanelConfig(), panel.Deps{
		Reader:    hw.reader,
		Expander:  hw.regs,
		Memory:    hw.mem,
		Display:   display.NewPanel(fb),
		Backlight: hw.backlight,
		Prober:    hw.prober,
		Clock:     hold.RealClock{},
		OnEvent:   eventSink(publisher, logger),
		Logger:    logger,
	})
	p.Start(time.Now())

	tracker := status.NewTracker(time.Now(), cfg.StatusConfig())
	tracker.Update(p.Report())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	if publisher != nil {
		snap := tracker.Snapshot()
		if err := publisher.PublishSystem(mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}); err != nil {
			logger.Warn("failed to publish startup event", "err", err)
		}
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, web.Options{Screen: fb, Logger: logger})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	logger.Info("started",
		"poll", cfg.PanelConfig().Poll,
		"headless", cfg.Headless,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.PanelConfig().Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		panel:      p,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  cfg.MQTT.Heartbeat,
		now:        time.Now,
		log:        logger,
	}
	return l.run(ticker.C, sigCh)
}

// eventSink logs panel events and forwards them to MQTT.
func eventSink(publisher mqtt.Publisher, logger *slog.Logger) func(logic.Event) {
	return func(e logic.Event) {
		logger.Info("event", "type", e.Type, "line", e.Line, "state", e.State, "source", e.Source)
		if publisher == nil {
			return
		}
		if err := publisher.Publish(e); err != nil {
			logger.Warn("publish error", "err", err)
		}
	}
}

func printLines(w io.Writer, regs expander.Registers) error {
	m := interlock.NewModel(regs, nil, 0, slog.Default())
	for i := 0; i < interlock.LineCount; i++ {
		st := m.Status(i)
		if st.Err != nil {
			return fmt.Errorf("read %s: %w", st.Line.Label, st.Err)
		}
		active := "inactive"
		if st.SensedActive {
			active = "ACTIVE"
		}
		fmt.Fprintf(w, "%d %-10s %-8s %-8s %s\n", i, st.Line.Label, st.Mode, active, st.Indicator.Tone)
	}
	return nil
}

// loop is the single goroutine that owns the panel.
type loop struct {
	panel      *panel.Panel
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
	log        *slog.Logger

	lastReport    time.Time
	lastHeartbeat time.Time
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	start := l.now()
	l.lastReport = start
	l.lastHeartbeat = start
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil
		case <-tick:
			l.onTick(l.now())
		}
	}
}

func (l *loop) onTick(t time.Time) {
	l.panel.Tick(t)

	if t.Sub(l.lastReport) >= reportInterval {
		l.lastReport = t
		l.refresh()
	}

	if l.heartbeat > 0 && t.Sub(l.lastHeartbeat) >= l.heartbeat {
		l.lastHeartbeat = t
		l.refresh()
		c := l.panel.Counts()
		l.log.Info("heartbeat",
			"manual_pulses", c.ManualPulses, "auto_pulses", c.AutoPulses,
			"commits", c.Commits, "bus_errors", c.BusErrors)
		l.publishSystem("HEARTBEAT", "", false)
	}
}

func (l *loop) refresh() {
	l.tracker.Update(l.panel.Report())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.log.Info("shutting down", "signal", s)
	reason := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		reason = "SIGINT"
	case syscall.SIGTERM:
		reason = "SIGTERM"
	}
	l.refresh()
	l.publishSystem("SHUTDOWN", reason, true)
}

func (l *loop) publishSystem(event, reason string, retained bool) {
	if l.publisher == nil {
		return
	}
	snap := l.tracker.Snapshot()
	err := l.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		l.log.Warn("failed to publish system event", "event", event, "err", err)
	}
}
