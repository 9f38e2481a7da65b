package clockselect

import (
	"errors"

	"github.com/shiwa/ringclock/internal/source"
)

// Election — выбор активного источника времени: primary → secondary.
// Election сам реализует source.Client: пока активный источник отвечает, запросы
// идут только к нему, чтобы цикл подтверждения секунды не смешивал источники.
type Election struct {
	primary   []source.Client
	secondary []source.Client
	active    source.Client
}

var _ source.Client = (*Election)(nil)

// NewElection создаёт выборщик из списков primary и secondary
func NewElection(primary, secondary []source.Client) *Election {
	return &Election{
		primary:   primary,
		secondary: secondary,
	}
}

// Select опрашивает источники по порядку и возвращает первый пригодный вместе с его ответом.
func (e *Election) Select() (source.Client, source.EpochSeconds) {
	for _, group := range [][]source.Client{e.primary, e.secondary} {
		for _, s := range group {
			if sec, st := s.QuerySecond(); st.IsUsable() {
				e.active = s
				return s, sec
			}
		}
	}
	e.active = nil
	return nil, source.InvalidEpoch
}

// Active возвращает текущий активный источник (после Select)
func (e *Election) Active() source.Client {
	return e.active
}

// Name возвращает имя активного источника
func (e *Election) Name() string {
	if e.active == nil {
		return "election"
	}
	return e.active.Name()
}

// Protocol возвращает протокол активного источника
func (e *Election) Protocol() string {
	if e.active == nil {
		return ""
	}
	return e.active.Protocol()
}

// QuerySecond спрашивает активный источник; если он не ответил — выбирает заново.
func (e *Election) QuerySecond() (source.EpochSeconds, source.Status) {
	if e.active != nil {
		if sec, st := e.active.QuerySecond(); st.IsUsable() {
			return sec, st
		}
	}
	if s, sec := e.Select(); s != nil {
		return sec, source.StatusLocked
	}
	return source.InvalidEpoch, source.StatusUnavailable
}

// Len — общее число источников.
func (e *Election) Len() int {
	return len(e.primary) + len(e.secondary)
}

// Close закрывает все источники
func (e *Election) Close() error {
	var errs []error
	for _, group := range [][]source.Client{e.primary, e.secondary} {
		for _, s := range group {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
