package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // зоны без системной базы tzdata (встраиваемые образы)

	"github.com/shiwa/ringclock/internal/face"
	"gopkg.in/yaml.v3"
)

// Config — конфигурация ringclock (YAML).
type Config struct {
	Time      TimeConfig      `yaml:"time"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Display   DisplayConfig   `yaml:"display"`
	Theme     ThemeConfig     `yaml:"theme"`
	Strip     StripConfig     `yaml:"strip"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TimeConfig — часовой пояс, политика синхронизации и источники времени.
type TimeConfig struct {
	Zone            string `yaml:"zone"`
	RefreshInterval string `yaml:"refresh_interval"` // интервал обновления и окно упреждения, например "5m"
	PreemptLead     string `yaml:"preempt_lead"`     // упреждение до границы окна, "5s"
	ConfirmAttempts int    `yaml:"confirm_attempts"`
	ConfirmPacing   string `yaml:"confirm_pacing"`
	RetryCooldown   string `yaml:"retry_cooldown"`

	PrimarySources   []SourceConfig `yaml:"primary_sources"`
	SecondarySources []SourceConfig `yaml:"secondary_sources"`
}

// SourceConfig — один источник времени (protocol: ntp, nmea)
type SourceConfig struct {
	Protocol string `yaml:"protocol"`
	Disable  bool   `yaml:"disable"`
	// NTP
	IP      string `yaml:"ip"`
	Timeout string `yaml:"timeout"`
	// NMEA
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	Offset string `yaml:"offset"` // задержка вывода RMC, например "-120ms"
}

// SchedulerConfig — выравнивание кадров по границе секунды.
type SchedulerConfig struct {
	Policy         string `yaml:"policy"` // continuous | dirty
	AlignThreshold string `yaml:"align_threshold"`
	Settle         string `yaml:"settle"`
	Yield          string `yaml:"yield"`
}

// DisplayConfig — начальные настройки дисплея; применяются и при перечитывании (SIGHUP).
type DisplayConfig struct {
	On         bool     `yaml:"on"`
	Brightness int      `yaml:"brightness"`
	Hue        *float64 `yaml:"hue"`
	Saturation *float64 `yaml:"saturation"`
}

// ThemeConfig — параметры циферблата. Отсутствующие ключи берутся из Default();
// night_threshold: 0 отключает ночной режим.
type ThemeConfig struct {
	Elements             int     `yaml:"elements"`
	Offset               int     `yaml:"offset"`
	BrightnessFactor     int     `yaml:"brightness_factor"`
	NightThreshold       int     `yaml:"night_threshold"`
	BackgroundSaturation float64 `yaml:"background_saturation"`
	BackgroundBrightness float64 `yaml:"background_brightness"`
	TickSaturation       float64 `yaml:"tick_saturation"`
	TickBrightness       float64 `yaml:"tick_brightness"`
	QuarterBrightness    float64 `yaml:"quarter_brightness"`
	MinuteHand           string  `yaml:"minute_hand"` // gap | bright
	MinuteHandRadius     int     `yaml:"minute_hand_radius"`
}

// StripConfig — драйвер ленты (console, adalight, apa102)
type StripConfig struct {
	Driver string `yaml:"driver"`
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
	SPI    string `yaml:"spi"`
	SPIHz  int64  `yaml:"spi_hz"`
}

// MetricsConfig — HTTP endpoint для prometheus; пустой listen — выключено.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default возвращает конфиг по умолчанию
func Default() *Config {
	t := face.DefaultTheme()
	return &Config{
		Time: TimeConfig{
			Zone:            "Local",
			RefreshInterval: "5m",
			PreemptLead:     "5s",
			ConfirmAttempts: 50,
			ConfirmPacing:   "20ms",
			RetryCooldown:   "5s",
			PrimarySources: []SourceConfig{
				{Protocol: "ntp", IP: "pool.ntp.org", Timeout: "500ms"},
			},
		},
		Scheduler: SchedulerConfig{
			Policy:         "continuous",
			AlignThreshold: "200ms",
			Settle:         "50ms",
			Yield:          "7ms",
		},
		Display: DisplayConfig{
			On:         true,
			Brightness: 10,
		},
		Theme: ThemeConfig{
			Elements:             t.Elements,
			Offset:               t.Offset,
			BrightnessFactor:     t.BrightnessFactor,
			NightThreshold:       t.NightThreshold,
			BackgroundSaturation: t.BackgroundSaturation,
			BackgroundBrightness: t.BackgroundBrightness,
			TickSaturation:       t.TickSaturation,
			TickBrightness:       t.TickBrightness,
			QuarterBrightness:    t.QuarterBrightness,
			MinuteHand:           string(t.MinuteHand),
			MinuteHandRadius:     t.MinuteHandRadius,
		},
		Strip: StripConfig{
			Driver: "console",
			Baud:   115200,
			SPIHz:  4_000_000,
		},
	}
}

// Load читает конфиг из YAML
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML и подставляет значения по умолчанию.
func Parse(data []byte) (*Config, error) {
	// display и theme заполняются заранее: отсутствие ключа даёт значение по умолчанию,
	// а явный ноль (on: false, night_threshold: 0) сохраняется
	d := Default()
	c := Config{Display: d.Display, Theme: d.Theme}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Scheduler.Policy {
	case "continuous", "dirty":
	default:
		return fmt.Errorf("scheduler.policy: unknown %q", c.Scheduler.Policy)
	}
	switch c.Theme.MinuteHand {
	case string(face.HandGap), string(face.HandBright):
	default:
		return fmt.Errorf("theme.minute_hand: unknown %q", c.Theme.MinuteHand)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func applyDefaults(c *Config) {
	d := Default()
	t := &c.Time
	if t.Zone == "" {
		t.Zone = d.Time.Zone
	}
	if t.RefreshInterval == "" {
		t.RefreshInterval = d.Time.RefreshInterval
	}
	if t.PreemptLead == "" {
		t.PreemptLead = d.Time.PreemptLead
	}
	if t.ConfirmAttempts <= 0 {
		t.ConfirmAttempts = d.Time.ConfirmAttempts
	}
	if t.ConfirmPacing == "" {
		t.ConfirmPacing = d.Time.ConfirmPacing
	}
	if t.RetryCooldown == "" {
		t.RetryCooldown = d.Time.RetryCooldown
	}
	if len(t.PrimarySources) == 0 && len(t.SecondarySources) == 0 {
		t.PrimarySources = d.Time.PrimarySources
	}

	s := &c.Scheduler
	if s.Policy == "" {
		s.Policy = d.Scheduler.Policy
	}
	if s.AlignThreshold == "" {
		s.AlignThreshold = d.Scheduler.AlignThreshold
	}
	if s.Settle == "" {
		s.Settle = d.Scheduler.Settle
	}
	if s.Yield == "" {
		s.Yield = d.Scheduler.Yield
	}

	th := &c.Theme
	if th.Elements <= 0 {
		th.Elements = d.Theme.Elements
	}
	if th.BrightnessFactor <= 0 {
		th.BrightnessFactor = d.Theme.BrightnessFactor
	}
	if th.MinuteHand == "" {
		th.MinuteHand = d.Theme.MinuteHand
	}
	if th.MinuteHandRadius < 0 {
		th.MinuteHandRadius = 0
	}

	if c.Strip.Driver == "" {
		c.Strip.Driver = d.Strip.Driver
	}
	if c.Strip.Baud == 0 {
		c.Strip.Baud = d.Strip.Baud
	}
	if c.Strip.SPIHz == 0 {
		c.Strip.SPIHz = d.Strip.SPIHz
	}
}

// Location возвращает часовой пояс из time.zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Time.Zone)
	if err != nil {
		return nil, fmt.Errorf("time.zone %q: %w", c.Time.Zone, err)
	}
	return loc, nil
}

// FaceTheme переводит секцию theme в face.Theme.
func (c *Config) FaceTheme() face.Theme {
	th := c.Theme
	return face.Theme{
		Elements:             th.Elements,
		Offset:               th.Offset,
		BrightnessFactor:     th.BrightnessFactor,
		NightThreshold:       th.NightThreshold,
		BackgroundSaturation: th.BackgroundSaturation,
		BackgroundBrightness: th.BackgroundBrightness,
		TickSaturation:       th.TickSaturation,
		TickBrightness:       th.TickBrightness,
		QuarterBrightness:    th.QuarterBrightness,
		MinuteHand:           face.HandPolicy(th.MinuteHand),
		MinuteHandRadius:     th.MinuteHandRadius,
	}
}

// FaceDisplay переводит секцию display в face.Display (границы — через Clamp).
func (c *Config) FaceDisplay() face.Display {
	d := face.Display{
		On:         c.Display.On,
		Brightness: c.Display.Brightness,
		Hue:        c.Display.Hue,
		Saturation: c.Display.Saturation,
	}
	return d.Clamp(c.FaceTheme())
}

// ParseDuration парсит длительность; пустая строка или ошибка — defaultVal.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
