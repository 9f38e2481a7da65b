// Package monotonic — свободно бегущий миллисекундный счётчик с переполнением
// (аналог millis() на микроконтроллере). Имеют смысл только разности отсчётов.
package monotonic

import "time"

// Sample — отсчёт счётчика в миллисекундах; переполняется через ~49.7 суток.
type Sample uint32

// Since возвращает число миллисекунд от ref до s по модулю 2^32.
// Корректно и после переполнения, если реальный интервал меньше периода счётчика.
func (s Sample) Since(ref Sample) uint32 {
	return uint32(s - ref)
}

// Add сдвигает отсчёт вперёд на d (с переполнением).
func (s Sample) Add(d time.Duration) Sample {
	return s + Sample(uint32(d.Milliseconds()))
}

// Counter — источник монотонных отсчётов. Now никогда не блокирует.
type Counter interface {
	Now() Sample
}

// Manual — счётчик, который двигается только вручную. Используется в тестах
// и при воспроизведении записанных сценариев.
type Manual struct {
	now Sample
}

// NewManual создаёт счётчик с начальным значением start.
func NewManual(start Sample) *Manual {
	return &Manual{now: start}
}

// Now возвращает текущее значение.
func (m *Manual) Now() Sample {
	return m.now
}

// Advance сдвигает счётчик на d.
func (m *Manual) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set устанавливает значение счётчика.
func (m *Manual) Set(s Sample) {
	m.now = s
}
