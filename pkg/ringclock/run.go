// Package ringclock — кооперативный цикл часов: в одной горутине чередует фоновые
// задачи, перечитывание настроек и решения планировщика. Все паузы цикла
// выполняются здесь; блокирующее ожидание одно — до границы секунды перед кадром.
package ringclock

import (
	"context"
	"fmt"
	"time"

	"github.com/shiwa/ringclock/internal/clocksync"
	"github.com/shiwa/ringclock/internal/config"
	"github.com/shiwa/ringclock/internal/display"
	"github.com/shiwa/ringclock/internal/logger"
	"github.com/shiwa/ringclock/internal/monotonic"
	"github.com/shiwa/ringclock/internal/scheduler"
	"github.com/shiwa/ringclock/internal/source"
	"github.com/shiwa/ringclock/internal/strip"
	"github.com/shiwa/ringclock/internal/telemetry"
)

// Task — фоновая задача, которой цикл отдаёт управление на каждой итерации.
// Poll должен возвращаться быстро (единицы миллисекунд).
type Task interface {
	Poll(ctx context.Context)
}

// TaskFunc — Task из функции.
type TaskFunc func(ctx context.Context)

// Poll вызывает f.
func (f TaskFunc) Poll(ctx context.Context) { f(ctx) }

// Deps — внешние коллабораторы цикла.
type Deps struct {
	Counter monotonic.Counter
	Client  source.Client
	Online  source.Connectivity
	Sink    strip.Sink
	Metrics *telemetry.Metrics
	// Reload — новые конфиги (SIGHUP); применяется секция display.
	Reload <-chan *config.Config
	Tasks  []Task
	// Sleep — пауза цикла; nil — clocksync.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Renderer — часть планировщика, которую исполняет Execute.
type Renderer interface {
	Render(trigger string) error
}

// Run крутит цикл до отмены ctx. При выходе лента гасится.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	if cfg == nil || deps.Client == nil || deps.Sink == nil {
		return fmt.Errorf("ringclock: config, time source and sink are required")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if deps.Counter == nil {
		deps.Counter = monotonic.NewSystem()
	}
	if deps.Online == nil {
		deps.Online = source.Always(true)
	}
	if deps.Sleep == nil {
		deps.Sleep = clocksync.Sleep
	}

	syncOpts := SyncOptions(cfg, loc)
	syncOpts.Sleep = deps.Sleep
	sync := clocksync.New(deps.Counter, deps.Client, syncOpts)

	theme := cfg.FaceTheme()
	store := display.NewStore(theme, cfg.FaceDisplay())
	schedOpts := SchedulerOptions(cfg)
	sched := scheduler.New(sync, deps.Online, store, theme, deps.Sink, deps.Counter, deps.Metrics, schedOpts)

	logger.Info("ringclock: %d elements, zone %s, refresh %v, policy %s, source %s",
		theme.Elements, loc, syncOpts.RefreshInterval, schedOpts.Policy, deps.Client.Name())

	defer blank(deps.Sink, theme.Elements)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, t := range deps.Tasks {
			t.Poll(ctx)
		}
		if applyReload(deps.Reload, store) {
			sched.MarkDirty()
		}
		d := sched.Tick(ctx)
		if err := Execute(ctx, sched, d, deps.Sleep); err != nil {
			return err
		}
	}
}

// Execute выполняет решение планировщика. Ошибки отрисовки только логируются;
// возвращается лишь ошибка паузы (отмена ctx).
func Execute(ctx context.Context, r Renderer, d scheduler.Decision, sleep func(context.Context, time.Duration) error) error {
	switch d.Action {
	case scheduler.ActionRender:
		_ = r.Render(d.Trigger)
		return nil
	case scheduler.ActionAlignedRender:
		if err := sleep(ctx, d.Delay); err != nil {
			return err
		}
		_ = r.Render(d.Trigger)
		return sleep(ctx, d.Settle)
	default:
		return sleep(ctx, d.Delay)
	}
}

// SyncOptions переводит секцию time в clocksync.Options.
func SyncOptions(cfg *config.Config, loc *time.Location) clocksync.Options {
	d := clocksync.DefaultOptions()
	t := cfg.Time
	return clocksync.Options{
		RefreshInterval: config.ParseDuration(t.RefreshInterval, d.RefreshInterval),
		PreemptLead:     config.ParseDuration(t.PreemptLead, d.PreemptLead),
		ConfirmAttempts: t.ConfirmAttempts,
		ConfirmPacing:   config.ParseDuration(t.ConfirmPacing, d.ConfirmPacing),
		RetryCooldown:   config.ParseDuration(t.RetryCooldown, d.RetryCooldown),
		Location:        loc,
	}
}

// SchedulerOptions переводит секцию scheduler в scheduler.Options.
func SchedulerOptions(cfg *config.Config) scheduler.Options {
	d := scheduler.DefaultOptions()
	s := cfg.Scheduler
	return scheduler.Options{
		Policy:         scheduler.Policy(s.Policy),
		AlignThreshold: config.ParseDuration(s.AlignThreshold, d.AlignThreshold),
		Settle:         config.ParseDuration(s.Settle, d.Settle),
		Yield:          config.ParseDuration(s.Yield, d.Yield),
	}
}

func applyReload(reload <-chan *config.Config, store *display.Store) bool {
	if reload == nil {
		return false
	}
	select {
	case c := <-reload:
		if c == nil || !store.Set(c.FaceDisplay()) {
			return false
		}
		d := store.Snapshot()
		logger.Info("ringclock: display on=%v brightness=%d", d.On, d.Brightness)
		return true
	default:
		return false
	}
}

// blank гасит ленту при выходе (кадр из нулей и один Flush).
func blank(sink strip.Sink, n int) {
	for i := 0; i < n; i++ {
		sink.SetElement(i, 0, 0, 0)
	}
	if err := sink.Flush(); err != nil {
		logger.Error("strip clear: %v", err)
	}
}
