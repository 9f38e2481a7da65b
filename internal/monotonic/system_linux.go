//go:build linux

package monotonic

import "golang.org/x/sys/unix"

// System читает CLOCK_MONOTONIC и отдаёт младшие 32 бита миллисекунд.
type System struct{}

// NewSystem возвращает системный счётчик.
func NewSystem() System {
	return System{}
}

// Now возвращает текущий отсчёт. При ошибке clock_gettime (не бывает на Linux) — 0.
func (System) Now() Sample {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return Sample(uint32(ts.Nano() / 1e6))
}

// GranularityNs выполняет простое измерение разрешения CLOCK_MONOTONIC:
// минимальный ненулевой интервал между соседними вызовами clock_gettime.
func GranularityNs() int64 {
	const rounds = 20
	var minDt int64 = 1e9
	for i := 0; i < rounds; i++ {
		var t1, t2 unix.Timespec
		_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &t1)
		_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &t2)
		dt := t2.Nano() - t1.Nano()
		if dt > 0 && dt < minDt {
			minDt = dt
		}
	}
	if minDt == 1e9 {
		return 0
	}
	return minDt
}
