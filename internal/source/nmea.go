package source

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// Ожидание одной строки RMC (приёмник шлёт RMC раз в секунду)
const nmeaReadTimeout = 1200 * time.Millisecond

// nmeaPort — последовательный порт приёмника; *serial.Port подходит как есть.
type nmeaPort interface {
	io.ReadCloser
	// Flush отбрасывает принятые, но ещё не прочитанные байты.
	Flush() error
}

// NMEA — источник времени по NMEA RMC (GPRMC/GNRMC) с последовательного порта.
// Каждый запрос отбрасывает накопленный ввод и ждёт следующего свежего RMC:
// предложения, пролежавшие в буфере между синхронизациями, относятся к прошлым секундам.
type NMEA struct {
	port   nmeaPort
	rd     *bufio.Reader
	device string
	offset time.Duration // статическое смещение (задержка вывода приёмника)
}

// NewNMEA создаёт источник NMEA по последовательному порту.
func NewNMEA(device string, baud int, offset time.Duration) (*NMEA, error) {
	if baud == 0 {
		baud = 9600
	}
	c := &serial.Config{Name: device, Baud: baud, ReadTimeout: nmeaReadTimeout}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("nmea open %s: %w", device, err)
	}
	return newNMEA(port, device, offset), nil
}

func newNMEA(port nmeaPort, device string, offset time.Duration) *NMEA {
	return &NMEA{
		port:   port,
		rd:     bufio.NewReader(port),
		device: device,
		offset: offset,
	}
}

// Name возвращает имя источника
func (n *NMEA) Name() string {
	return fmt.Sprintf("nmea:%s", n.device)
}

// Protocol возвращает протокол
func (n *NMEA) Protocol() string {
	return "nmea"
}

// QuerySecond сбрасывает накопленный ввод и читает строки до первого валидного RMC.
// Если за nmeaReadTimeout свежего RMC нет — StatusUnlocked.
func (n *NMEA) QuerySecond() (EpochSeconds, Status) {
	if err := n.port.Flush(); err != nil {
		return InvalidEpoch, StatusUnavailable
	}
	n.rd.Reset(n.port)

	deadline := time.Now().Add(nmeaReadTimeout)
	for time.Now().Before(deadline) {
		line, err := n.rd.ReadString('\n')
		if err != nil {
			break
		}
		t, ok := parseRMC(strings.TrimSpace(line))
		if !ok {
			continue
		}
		return EpochSeconds(t.Add(n.offset).Unix()), StatusLocked
	}
	return InvalidEpoch, StatusUnlocked
}

// parseRMC парсит $GPRMC или $GNRMC: поле 1 = hhmmss.ss, поле 2 = A/V, поле 9 = ddmmyy.
func parseRMC(line string) (time.Time, bool) {
	if !strings.HasPrefix(line, "$GP") && !strings.HasPrefix(line, "$GN") {
		return time.Time{}, false
	}
	// Убрать checksum *xx
	if i := strings.Index(line, "*"); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(line, ",")
	if len(parts) < 10 || !strings.HasSuffix(parts[0], "RMC") {
		return time.Time{}, false
	}
	if parts[2] != "A" {
		return time.Time{}, false
	}
	timeStr, dateStr := parts[1], parts[9]
	if len(timeStr) < 6 || len(dateStr) < 6 {
		return time.Time{}, false
	}
	hh, err1 := strconv.Atoi(timeStr[0:2])
	mm, err2 := strconv.Atoi(timeStr[2:4])
	ss, err3 := strconv.Atoi(timeStr[4:6])
	day, err4 := strconv.Atoi(dateStr[0:2])
	month, err5 := strconv.Atoi(dateStr[2:4])
	year, err6 := strconv.Atoi(dateStr[4:6])
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return time.Time{}, false
		}
	}
	if year < 80 {
		year += 2000
	} else {
		year += 1900
	}
	return time.Date(year, time.Month(month), day, hh, mm, ss, 0, time.UTC), true
}

// Close закрывает порт
func (n *NMEA) Close() error {
	if n.port == nil {
		return nil
	}
	return n.port.Close()
}
