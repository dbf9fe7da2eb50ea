// Package config loads the daemon configuration: defaults, then an
// optional YAML file, then command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/interlock-panel/internal/auxtab"
	"github.com/sweeney/interlock-panel/internal/gpio"
	"github.com/sweeney/interlock-panel/internal/logic"
	"github.com/sweeney/interlock-panel/internal/menu"
	"github.com/sweeney/interlock-panel/internal/panel"
	"github.com/sweeney/interlock-panel/internal/status"
)

// Config is the top-level YAML configuration.
type Config struct {
	Input    InputConfig   `yaml:"input"`
	I2C      I2CConfig     `yaml:"i2c"`
	Panel    PanelConfig   `yaml:"panel"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	HTTP     HTTPConfig    `yaml:"http"`
	Logging  LoggingConfig `yaml:"logging"`
	Headless bool          `yaml:"headless"`
}

// InputConfig is the front-panel wiring and gesture timing.
type InputConfig struct {
	GPIOChip      string `yaml:"gpio_chip"`
	Down          int    `yaml:"down"`
	Left          int    `yaml:"left"`
	Up            int    `yaml:"up"`
	Right         int    `yaml:"right"`
	OK            int    `yaml:"ok"`
	EncoderA      int    `yaml:"encoder_a"`
	EncoderB      int    `yaml:"encoder_b"`
	PollMS        int    `yaml:"poll_ms"`
	DebounceTicks int    `yaml:"debounce_ticks"`
	LongMS        int    `yaml:"long_ms"`
	DoubleMS      int    `yaml:"double_ms"`
	EditStepMS    int    `yaml:"edit_step_ms"`
}

// I2CConfig names the bus and device addresses.
type I2CConfig struct {
	Bus          string `yaml:"bus"`
	ExpanderAddr uint16 `yaml:"expander_addr"`
	EEPROMAddr   uint16 `yaml:"eeprom_addr"`
	// Backlight is "auto" (probe 0x36/0x37) or "off".
	Backlight string `yaml:"backlight"`
}

// PanelConfig is the menu and action timing.
type PanelConfig struct {
	IdleTimeoutMS    int    `yaml:"idle_timeout_ms"`
	TabRedrawDelayMS int    `yaml:"tab_redraw_delay_ms"`
	IdleBanner       string `yaml:"idle_banner"`
	ResetPulseMS     int    `yaml:"reset_pulse_ms"`
	FlashMS          int    `yaml:"flash_ms"`
	InternalTestMS   int    `yaml:"internal_test_ms"`
}

// MQTTConfig is the telemetry broker. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig is the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	pins := gpio.DefaultPins()
	return Config{
		Input: InputConfig{
			GPIOChip:      pins.Chip,
			Down:          pins.Down,
			Left:          pins.Left,
			Up:            pins.Up,
			Right:         pins.Right,
			OK:            pins.Confirm,
			EncoderA:      pins.EncA,
			EncoderB:      pins.EncB,
			PollMS:        5,
			DebounceTicks: 4,
			LongMS:        800,
			DoubleMS:      450,
			EditStepMS:    300,
		},
		I2C: I2CConfig{
			Bus:          "1",
			ExpanderAddr: 0x20,
			EEPROMAddr:   0x50,
			Backlight:    "auto",
		},
		Panel: PanelConfig{
			IdleTimeoutMS:    120000,
			TabRedrawDelayMS: 350,
			IdleBanner:       "European Spallation Source",
			ResetPulseMS:     500,
			FlashMS:          300,
			InternalTestMS:   10000,
		},
		MQTT: MQTTConfig{
			ClientID:  "interlock-panel",
			Heartbeat: 15 * time.Minute,
		},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadFile reads a YAML file over the defaults. Unknown fields are
// rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}
	return cfg, nil
}

// FlagOverrides holds command-line values. Nil pointers are not applied.
type FlagOverrides struct {
	LogLevel *string
	HTTPAddr *string
	Broker   *string
	Headless *bool
	I2CBus   *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.Headless != nil {
		cfg.Headless = *o.Headless
	}
	if o.I2CBus != nil {
		cfg.I2C.Bus = *o.I2CBus
	}
}

// Validate checks the config after defaults, file and overrides.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	in := c.Input
	if in.GPIOChip == "" {
		return errors.New("input.gpio_chip must not be empty")
	}
	seen := map[int]string{}
	for _, p := range []struct {
		name   string
		offset int
	}{
		{"down", in.Down}, {"left", in.Left}, {"up", in.Up}, {"right", in.Right},
		{"ok", in.OK}, {"encoder_a", in.EncoderA}, {"encoder_b", in.EncoderB},
	} {
		if p.offset < 0 {
			return fmt.Errorf("input.%s must be >= 0", p.name)
		}
		if other, ok := seen[p.offset]; ok {
			return fmt.Errorf("input.%s and input.%s share offset %d", other, p.name, p.offset)
		}
		seen[p.offset] = p.name
	}
	if in.PollMS <= 0 || in.PollMS > 100 {
		return errors.New("input.poll_ms must be between 1 and 100")
	}
	if in.DebounceTicks < 1 {
		return errors.New("input.debounce_ticks must be >= 1")
	}
	if in.LongMS <= 0 || in.DoubleMS <= 0 || in.EditStepMS < 0 {
		return errors.New("input.long_ms and input.double_ms must be > 0, input.edit_step_ms >= 0")
	}

	if c.I2C.ExpanderAddr > 0x7F || c.I2C.EEPROMAddr > 0x7F {
		return errors.New("i2c addresses must be 7-bit")
	}
	switch c.I2C.Backlight {
	case "auto", "off":
	default:
		return fmt.Errorf("i2c.backlight must be auto or off, got %q", c.I2C.Backlight)
	}

	p := c.Panel
	if p.ResetPulseMS <= 0 {
		return errors.New("panel.reset_pulse_ms must be > 0")
	}
	if p.IdleTimeoutMS < 0 || p.TabRedrawDelayMS < 0 || p.FlashMS < 0 || p.InternalTestMS < 0 {
		return errors.New("panel timings must be >= 0")
	}

	if c.MQTT.Heartbeat < 0 {
		return errors.New("mqtt.heartbeat must be >= 0")
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Pins returns the GPIO wiring.
func (c Config) Pins() gpio.Pins {
	return gpio.Pins{
		Chip:    c.Input.GPIOChip,
		Down:    c.Input.Down,
		Left:    c.Input.Left,
		Up:      c.Input.Up,
		Right:   c.Input.Right,
		Confirm: c.Input.OK,
		EncA:    c.Input.EncoderA,
		EncB:    c.Input.EncoderB,
	}
}

// PanelConfig returns the poll loop configuration.
func (c Config) PanelConfig() panel.Config {
	return panel.Config{
		Poll:       ms(c.Input.PollMS),
		ResetPulse: ms(c.Panel.ResetPulseMS),
		Classifier: logic.ClassifierConfig{
			DebounceTicks: c.Input.DebounceTicks,
			LongPress:     ms(c.Input.LongMS),
			DoubleWindow:  ms(c.Input.DoubleMS),
			DoubleLine:    logic.LineConfirm,
		},
		Menu: menu.Config{
			IdleTimeout:    ms(c.Panel.IdleTimeoutMS),
			TabRedrawDelay: ms(c.Panel.TabRedrawDelayMS),
			EditStep:       ms(c.Input.EditStepMS),
			Flash:          ms(c.Panel.FlashMS),
			IdleBanner:     c.Panel.IdleBanner,
		},
		Aux: auxtab.Config{
			TestDuration: ms(c.Panel.InternalTestMS),
			SaveDelay:    auxtab.DefaultConfig().SaveDelay,
		},
	}
}

// StatusConfig returns the configuration shown on the status page.
func (c Config) StatusConfig() status.Config {
	return status.Config{
		PollMs:        int64(c.Input.PollMS),
		DebounceTicks: c.Input.DebounceTicks,
		LongMs:        int64(c.Input.LongMS),
		DoubleMs:      int64(c.Input.DoubleMS),
		ResetPulseMs:  int64(c.Panel.ResetPulseMS),
		HeartbeatMs:   c.MQTT.Heartbeat.Milliseconds(),
		Broker:        c.MQTT.Broker,
		HTTPAddr:      c.HTTP.Addr,
		Headless:      c.Headless,
	}
}
