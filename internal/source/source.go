package source

import "math"

// EpochSeconds — секунды с 1970-01-01 UTC (календарное время без часового пояса).
type EpochSeconds int64

// InvalidEpoch — значение "время неизвестно".
const InvalidEpoch EpochSeconds = math.MinInt64

// Valid сообщает, что значение не является InvalidEpoch.
func (e EpochSeconds) Valid() bool {
	return e != InvalidEpoch
}

// Client — клиент источника времени: один запрос возвращает текущую секунду эпохи.
// Запрос может занимать до нескольких сотен миллисекунд; вызывать можно подряд
// в коротком цикле с паузами ~20 мс.
type Client interface {
	// Name возвращает имя источника для логов
	Name() string
	// Protocol возвращает протокол: ntp, nmea
	Protocol() string
	// QuerySecond запрашивает текущую секунду эпохи. При статусе, отличном от
	// StatusLocked, значение — InvalidEpoch.
	QuerySecond() (EpochSeconds, Status)
	// Close освобождает ресурсы
	Close() error
}

// Status — состояние источника
type Status int

const (
	StatusUnavailable Status = iota
	StatusUnlocked           // есть ответ, но время не валидно (например GNSS без fix)
	StatusLocked             // источник пригоден для синхронизации
)

func (s Status) String() string {
	switch s {
	case StatusUnavailable:
		return "unavailable"
	case StatusUnlocked:
		return "unlocked"
	case StatusLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// IsUsable возвращает true, если ответу источника можно доверять
func (s Status) IsUsable() bool {
	return s == StatusLocked
}
