//go:build !linux

package monotonic

import "time"

var processStart = time.Now()

// System — счётчик на монотонной части time.Time (не-Linux).
type System struct{}

// NewSystem возвращает системный счётчик.
func NewSystem() System {
	return System{}
}

// Now возвращает миллисекунды от старта процесса (младшие 32 бита).
func (System) Now() Sample {
	return Sample(uint32(time.Since(processStart).Milliseconds()))
}

// GranularityNs — заглушка на не-Linux.
func GranularityNs() int64 {
	return 0
}
