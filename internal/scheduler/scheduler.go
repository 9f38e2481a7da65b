// Package scheduler решает на каждой итерации кооперативного цикла, что делать:
// синхронизировать часы, рисовать сразу, дождаться границы секунды и рисовать,
// или вернуть управление остальным задачам. Сам планировщик не спит: Tick
// возвращает Decision, паузы выполняет внешний цикл.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/shiwa/ringclock/internal/clocksync"
	"github.com/shiwa/ringclock/internal/face"
	"github.com/shiwa/ringclock/internal/logger"
	"github.com/shiwa/ringclock/internal/monotonic"
	"github.com/shiwa/ringclock/internal/source"
	"github.com/shiwa/ringclock/internal/strip"
	"github.com/shiwa/ringclock/internal/telemetry"
)

// Action — что должен сделать цикл.
type Action int

const (
	// ActionIdle — время неизвестно, дисплей не трогаем.
	ActionIdle Action = iota
	// ActionYield — до границы секунды далеко; отдать управление на Delay.
	ActionYield
	// ActionRender — рисовать немедленно (после синхронизации или изменения настроек).
	ActionRender
	// ActionAlignedRender — подождать Delay до границы секунды, нарисовать, выждать Settle.
	ActionAlignedRender
)

func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionYield:
		return "yield"
	case ActionRender:
		return "render"
	case ActionAlignedRender:
		return "aligned-render"
	default:
		return "unknown"
	}
}

// Decision — результат Tick.
type Decision struct {
	Action  Action
	Delay   time.Duration
	Settle  time.Duration
	Trigger string // sync, dirty, aligned
}

// Policy — политика перерисовки.
type Policy string

const (
	// PolicyContinuous — кадр на каждой границе секунды; вне очереди только после синхронизации.
	PolicyContinuous Policy = "continuous"
	// PolicyDirty — дополнительно рисовать сразу после MarkDirty (смена настроек).
	PolicyDirty Policy = "dirty"
)

// Options — параметры выравнивания.
type Options struct {
	Policy Policy
	// AlignThreshold — ближе этого к границе секунды цикл блокируется до неё.
	AlignThreshold time.Duration
	// Settle — пауза после кадра, чтобы не сработать дважды на одной границе.
	Settle time.Duration
	// Yield — пауза холостой итерации.
	Yield time.Duration
}

// DefaultOptions — 200 мс порог, 50 мс после кадра, 7 мс холостой ход.
func DefaultOptions() Options {
	return Options{
		Policy:         PolicyContinuous,
		AlignThreshold: 200 * time.Millisecond,
		Settle:         50 * time.Millisecond,
		Yield:          7 * time.Millisecond,
	}
}

// Timekeeper — часть clocksync.Synchronizer, нужная планировщику.
type Timekeeper interface {
	IsKnown() bool
	UpdateNeeded() bool
	CoolingDown() bool
	Synchronize(ctx context.Context) error
	MillisUntilNextSecond() time.Duration
	PhaseError() time.Duration
	LocalTime() (time.Time, bool)
	AnchorAge() time.Duration
	DriftPPM() (float64, bool)
}

// DisplaySource отдаёт текущий снимок настроек дисплея.
type DisplaySource interface {
	Snapshot() face.Display
}

// Scheduler — планировщик кадров. Единственный, кто пишет в Sink.
type Scheduler struct {
	clock   Timekeeper
	online  source.Connectivity
	display DisplaySource
	theme   face.Theme
	sink    strip.Sink
	counter monotonic.Counter
	metrics *telemetry.Metrics
	opts    Options

	dirty bool

	// последняя показанная секунда эпохи
	shown     bool
	lastShown int64
}

// New создаёт планировщик. metrics может быть nil.
func New(clock Timekeeper, online source.Connectivity, display DisplaySource, theme face.Theme,
	sink strip.Sink, counter monotonic.Counter, metrics *telemetry.Metrics, opts Options) *Scheduler {
	d := DefaultOptions()
	if opts.Policy == "" {
		opts.Policy = d.Policy
	}
	if opts.AlignThreshold <= 0 {
		opts.AlignThreshold = d.AlignThreshold
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.Yield <= 0 {
		opts.Yield = d.Yield
	}
	return &Scheduler{
		clock:   clock,
		online:  online,
		display: display,
		theme:   theme,
		sink:    sink,
		counter: counter,
		metrics: metrics,
		opts:    opts,
	}
}

// MarkDirty отмечает, что кадр устарел (изменились настройки дисплея).
func (s *Scheduler) MarkDirty() {
	s.dirty = true
}

// Tick — одна итерация. Может заблокироваться только внутри Synchronize (≤ ~1 с).
func (s *Scheduler) Tick(ctx context.Context) Decision {
	if s.clock.UpdateNeeded() && !s.clock.CoolingDown() && s.online.Online() {
		start := s.counter.Now()
		err := s.clock.Synchronize(ctx)
		took := time.Duration(s.counter.Now().Since(start)) * time.Millisecond
		s.metrics.ObserveSync(syncResult(err), took)
		if err == nil {
			if ppm, ok := s.clock.DriftPPM(); ok {
				s.metrics.ObserveDrift(ppm)
			}
			// большой скачок виден сразу, а не на следующей границе
			return Decision{Action: ActionRender, Trigger: "sync"}
		}
	}
	s.metrics.ObserveClock(s.clock.IsKnown(), s.clock.AnchorAge())

	if !s.clock.IsKnown() {
		return Decision{Action: ActionIdle, Delay: s.opts.Yield}
	}
	if s.opts.Policy == PolicyDirty && s.dirty {
		return Decision{Action: ActionRender, Trigger: "dirty"}
	}

	distance := s.clock.MillisUntilNextSecond()
	if distance == 0 && s.alreadyShown() {
		// граница только что наступила, и эта секунда уже нарисована (кадр после синхронизации)
		return Decision{Action: ActionYield, Delay: s.opts.Yield}
	}
	if distance > s.opts.AlignThreshold {
		return Decision{Action: ActionYield, Delay: s.opts.Yield}
	}
	return Decision{
		Action:  ActionAlignedRender,
		Delay:   distance,
		Settle:  s.opts.Settle,
		Trigger: "aligned",
	}
}

// Render рисует текущее время: SetElement для каждого светодиода и ровно один Flush.
// Пока время неизвестно, ничего не делает.
func (s *Scheduler) Render(trigger string) error {
	lt, ok := s.clock.LocalTime()
	if !ok {
		return nil
	}
	snap := s.display.Snapshot()
	c := face.Clock{Hour: lt.Hour(), Minute: lt.Minute(), Second: lt.Second()}
	frame := face.Render(c, snap, s.theme)
	for i, e := range frame {
		s.sink.SetElement(i, e.Hue, e.Sat, e.Bri)
	}
	err := s.sink.Flush()
	s.dirty = false
	s.shown, s.lastShown = true, lt.Unix()

	phase := s.clock.PhaseError()
	s.metrics.ObserveFrame(trigger, phase, err)
	logger.Debug("render %02d:%02d:%02d hue %3.0f at %3d ms past boundary (%s)",
		c.Hour, c.Minute, c.Second, face.BaseHue(c, snap), phase.Milliseconds(), trigger)
	if err != nil {
		logger.Error("strip flush: %v", err)
	}
	return err
}

func (s *Scheduler) alreadyShown() bool {
	lt, ok := s.clock.LocalTime()
	return ok && s.shown && lt.Unix() == s.lastShown
}

func syncResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, clocksync.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, clocksync.ErrConfirmationTimeout):
		return "timeout"
	case errors.Is(err, clocksync.ErrCoolingDown):
		return "cooldown"
	default:
		return "cancelled"
	}
}
