// Package display хранит текущий снимок настроек дисплея. Пишут внешние
// обработчики (перечитывание конфига), читает только отрисовка; значения
// приводятся к границам темы при записи.
package display

import "github.com/shiwa/ringclock/internal/face"

// Store — текущие настройки дисплея.
type Store struct {
	theme   face.Theme
	current face.Display
}

// NewStore создаёт хранилище с начальным снимком.
func NewStore(theme face.Theme, initial face.Display) *Store {
	return &Store{theme: theme, current: initial.Clamp(theme)}
}

// Snapshot возвращает текущие настройки (копию).
func (s *Store) Snapshot() face.Display {
	return s.current
}

// Set применяет новые настройки и сообщает, изменилось ли что-нибудь.
func (s *Store) Set(d face.Display) bool {
	next := d.Clamp(s.theme)
	if equal(next, s.current) {
		return false
	}
	s.current = next
	return true
}

// SetOn включает или выключает дисплей.
func (s *Store) SetOn(on bool) bool {
	d := s.current
	d.On = on
	return s.Set(d)
}

// SetBrightness задаёт уровень яркости (будет ограничен 1..MaxLevel).
func (s *Store) SetBrightness(level int) bool {
	d := s.current
	d.Brightness = level
	return s.Set(d)
}

func equal(a, b face.Display) bool {
	return a.On == b.On &&
		a.Brightness == b.Brightness &&
		equalPtr(a.Hue, b.Hue) &&
		equalPtr(a.Saturation, b.Saturation)
}

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
