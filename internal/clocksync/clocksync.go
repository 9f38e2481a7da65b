// Package clocksync ведёт соответствие между монотонным счётчиком и календарным
// временем. Единственное состояние — якорь (секунда эпохи, отсчёт счётчика),
// записанный в момент успешной синхронизации; текущее время экстраполируется от него.
//
// Состояния: Unknown (якоря нет) и Known. Переход только вперёд: после первой
// успешной синхронизации время считается известным навсегда, неудачные попытки
// якорь не трогают.
package clocksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shiwa/ringclock/internal/logger"
	"github.com/shiwa/ringclock/internal/monotonic"
	"github.com/shiwa/ringclock/internal/source"
)

var (
	// ErrUnavailable — источник не ответил или ответил невалидным временем.
	ErrUnavailable = errors.New("time source unavailable")
	// ErrConfirmationTimeout — источник отвечал, но секунда не сменилась за отведённые попытки.
	ErrConfirmationTimeout = errors.New("time source did not tick within confirmation window")
	// ErrCoolingDown — попытка отклонена: после неудачи не истекла пауза.
	ErrCoolingDown = errors.New("sync attempt within retry cooldown")
)

// Anchor — секунда эпохи и отсчёт счётчика в момент, когда эта секунда началась.
type Anchor struct {
	Epoch     source.EpochSeconds
	Reference monotonic.Sample
}

// Options — политика синхронизации.
type Options struct {
	// RefreshInterval — максимальный возраст якоря; он же окно упреждающей синхронизации.
	RefreshInterval time.Duration
	// PreemptLead — за сколько до границы окна (например, круглых 5 минут) синхронизироваться заранее.
	PreemptLead time.Duration
	// ConfirmAttempts и ConfirmPacing ограничивают цикл ожидания смены секунды (~1 с).
	ConfirmAttempts int
	ConfirmPacing   time.Duration
	// RetryCooldown — пауза после неудачной попытки.
	RetryCooldown time.Duration
	// Location — часовой пояс для LocalTime.
	Location *time.Location
	// Sleep — пауза между запросами подтверждения; nil — таймер с учётом ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions: обновление раз в 5 минут, 50 попыток по 20 мс, пауза 5 с.
func DefaultOptions() Options {
	return Options{
		RefreshInterval: 5 * time.Minute,
		PreemptLead:     5 * time.Second,
		ConfirmAttempts: 50,
		ConfirmPacing:   20 * time.Millisecond,
		RetryCooldown:   5 * time.Second,
		Location:        time.Local,
		Sleep:           Sleep,
	}
}

// Sleep ждёт d или отмены ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Synchronizer — часы устройства без RTC. Не потокобезопасен: все вызовы из одного цикла.
type Synchronizer struct {
	counter monotonic.Counter
	client  source.Client
	opts    Options

	// anchor заменяется целиком одним присваиванием и только в Synchronize.
	anchor *Anchor

	failed   bool
	failedAt monotonic.Sample

	drift driftEstimator
}

// New создаёт синхронизатор в состоянии Unknown. Нулевые поля opts заменяются значениями по умолчанию.
func New(counter monotonic.Counter, client source.Client, opts Options) *Synchronizer {
	d := DefaultOptions()
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = d.RefreshInterval
	}
	if opts.PreemptLead < 0 {
		opts.PreemptLead = 0
	}
	if opts.ConfirmAttempts <= 0 {
		opts.ConfirmAttempts = d.ConfirmAttempts
	}
	if opts.ConfirmPacing <= 0 {
		opts.ConfirmPacing = d.ConfirmPacing
	}
	if opts.Location == nil {
		opts.Location = d.Location
	}
	if opts.Sleep == nil {
		opts.Sleep = d.Sleep
	}
	return &Synchronizer{counter: counter, client: client, opts: opts}
}

// IsKnown сообщает, что хотя бы одна синхронизация прошла успешно.
func (s *Synchronizer) IsKnown() bool {
	return s.anchor != nil
}

// Anchor возвращает копию текущего якоря.
func (s *Synchronizer) Anchor() (Anchor, bool) {
	if s.anchor == nil {
		return Anchor{}, false
	}
	return *s.anchor, true
}

// AnchorAge — время от последней успешной синхронизации.
func (s *Synchronizer) AnchorAge() time.Duration {
	if s.anchor == nil {
		return 0
	}
	return time.Duration(s.counter.Now().Since(s.anchor.Reference)) * time.Millisecond
}

// UpdateNeeded: время неизвестно; якорь старше RefreshInterval; или текущая секунда
// стоит ровно за PreemptLead до границы окна RefreshInterval (чтобы сама граница,
// например круглые 5 минут, показывалась по свежему якорю).
func (s *Synchronizer) UpdateNeeded() bool {
	if s.anchor == nil {
		return true
	}
	age := s.AnchorAge()
	if age > s.opts.RefreshInterval {
		return true
	}
	window := int64(s.opts.RefreshInterval / time.Second)
	lead := int64(s.opts.PreemptLead / time.Second)
	// якорь моложе упреждения уже взят внутри этого окна
	if lead <= 0 || lead >= window || age <= s.opts.PreemptLead {
		return false
	}
	return floorMod(int64(s.CurrentEpochSeconds()), window) == window-lead
}

// CoolingDown сообщает, что после неудачной попытки не истёк RetryCooldown.
func (s *Synchronizer) CoolingDown() bool {
	if !s.failed {
		return false
	}
	since := time.Duration(s.counter.Now().Since(s.failedAt)) * time.Millisecond
	return since < s.opts.RetryCooldown
}

// Synchronize запрашивает секунду у источника и ждёт, пока источник не вернёт строго
// большую секунду: так якорь ставится на начало секунды, а не на кэшированный ответ.
// Ожидание ограничено и числом попыток, и сроком ConfirmAttempts*ConfirmPacing по счётчику
// от первого ответа: медленный источник не может растянуть попытку. При любой ошибке
// якорь не меняется.
func (s *Synchronizer) Synchronize(ctx context.Context) error {
	if s.CoolingDown() {
		return ErrCoolingDown
	}
	start := s.counter.Now()

	first, st := s.client.QuerySecond()
	if !st.IsUsable() || !first.Valid() {
		return s.fail(fmt.Errorf("%s: %w (%s)", s.client.Name(), ErrUnavailable, st))
	}

	budget := uint32(time.Duration(s.opts.ConfirmAttempts) * s.opts.ConfirmPacing / time.Millisecond)
	baseline := s.counter.Now()
	var second source.EpochSeconds
	for attempt := 0; ; attempt++ {
		if attempt >= s.opts.ConfirmAttempts {
			return s.fail(fmt.Errorf("%s: %w (stuck at %d after %d attempts)",
				s.client.Name(), ErrConfirmationTimeout, first, attempt))
		}
		if waited := s.counter.Now().Since(baseline); waited > budget {
			return s.fail(fmt.Errorf("%s: %w (stuck at %d after %d ms)",
				s.client.Name(), ErrConfirmationTimeout, first, waited))
		}
		if err := s.opts.Sleep(ctx, s.opts.ConfirmPacing); err != nil {
			return err
		}
		sec, st := s.client.QuerySecond()
		if st.IsUsable() && sec.Valid() && sec > first {
			second = sec
			break
		}
	}

	ref := s.counter.Now()
	s.anchor = &Anchor{Epoch: second, Reference: ref}
	s.failed = false
	s.drift.add(*s.anchor)
	if ppm, ok := s.drift.ppm(); ok {
		logger.Info("clocksync: %s: epoch %d at phase %3d ms, took %d ms, counter drift %+.1f ppm",
			s.client.Name(), second, uint32(ref)%1000, ref.Since(start), ppm)
	} else {
		logger.Info("clocksync: %s: epoch %d at phase %3d ms, took %d ms",
			s.client.Name(), second, uint32(ref)%1000, ref.Since(start))
	}
	return nil
}

// DriftPPM — оценка ухода монотонного счётчика относительно источника (положительная — спешит).
// false, пока успешных синхронизаций меньше трёх.
func (s *Synchronizer) DriftPPM() (float64, bool) {
	return s.drift.ppm()
}

func (s *Synchronizer) fail(err error) error {
	s.failed = true
	s.failedAt = s.counter.Now()
	logger.Info("clocksync: sync failed: %v", err)
	return err
}

// CurrentEpochSeconds — Epoch якоря плюс целые секунды, прошедшие по счётчику.
// В состоянии Unknown возвращает source.InvalidEpoch.
func (s *Synchronizer) CurrentEpochSeconds() source.EpochSeconds {
	if s.anchor == nil {
		return source.InvalidEpoch
	}
	elapsed := s.counter.Now().Since(s.anchor.Reference)
	return s.anchor.Epoch + source.EpochSeconds(elapsed/1000)
}

// MillisUntilNextSecond — время до следующей границы секунды по фазе якоря
// (границы идут через 1000 мс от Reference, а не по кратным 1000 самого счётчика).
// В состоянии Unknown возвращает 0.
func (s *Synchronizer) MillisUntilNextSecond() time.Duration {
	if s.anchor == nil {
		return 0
	}
	phase := s.counter.Now().Since(s.anchor.Reference) % 1000
	if phase == 0 {
		return 0
	}
	return time.Duration(1000-phase) * time.Millisecond
}

// PhaseError — насколько текущий момент отстоит от ближайшей прошедшей границы секунды.
func (s *Synchronizer) PhaseError() time.Duration {
	if s.anchor == nil {
		return 0
	}
	return time.Duration(s.counter.Now().Since(s.anchor.Reference)%1000) * time.Millisecond
}

// LocalTime — текущее время в настроенном часовом поясе.
func (s *Synchronizer) LocalTime() (time.Time, bool) {
	epoch := s.CurrentEpochSeconds()
	if !epoch.Valid() {
		return time.Time{}, false
	}
	return time.Unix(int64(epoch), 0).In(s.opts.Location), true
}

func floorMod(a, n int64) int64 {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
