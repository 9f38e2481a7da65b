package source

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Секунды между эпохой NTP (1900-01-01) и эпохой Unix.
const ntpEpochOffset = 2208988800

// NTP — источник времени по SNTP (клиент, один запрос — одна секунда с сервера).
// Адрес разрешается один раз и держится, пока сервер отвечает: базовая и подтверждающая
// секунды приходят с одного сервера пула. После неудачного запроса адрес разрешается заново.
type NTP struct {
	host    string
	timeout time.Duration
	addr    *net.UDPAddr
}

// NewNTP создаёт NTP источник. host — имя или адрес, порт по умолчанию 123.
func NewNTP(host string, timeout time.Duration) *NTP {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &NTP{host: host, timeout: timeout}
}

// Name возвращает имя источника
func (n *NTP) Name() string {
	return fmt.Sprintf("ntp:%s", n.host)
}

// Protocol возвращает протокол
func (n *NTP) Protocol() string {
	return "ntp"
}

// QuerySecond запрашивает время у NTP сервера и отбрасывает дробную часть.
func (n *NTP) QuerySecond() (EpochSeconds, Status) {
	sec, st := n.query()
	if !st.IsUsable() {
		n.addr = nil
	}
	return sec, st
}

func (n *NTP) query() (EpochSeconds, Status) {
	if n.addr == nil {
		addr := n.host
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, "123")
		}
		ua, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return InvalidEpoch, StatusUnavailable
		}
		n.addr = ua
	}
	conn, err := net.DialUDP("udp", nil, n.addr)
	if err != nil {
		return InvalidEpoch, StatusUnavailable
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(n.timeout)); err != nil {
		return InvalidEpoch, StatusUnavailable
	}
	// NTP request: 48 bytes, first byte = 0x1b (version 3, client)
	req := make([]byte, 48)
	req[0] = 0x1b
	if _, err := conn.Write(req); err != nil {
		return InvalidEpoch, StatusUnavailable
	}
	resp := make([]byte, 48)
	nr, err := conn.Read(resp)
	if err != nil || nr < 48 {
		return InvalidEpoch, StatusUnavailable
	}
	return parseNTPResponse(resp)
}

// parseNTPResponse извлекает секунды transmit timestamp (байты 40-43).
func parseNTPResponse(resp []byte) (EpochSeconds, Status) {
	if len(resp) < 48 {
		return InvalidEpoch, StatusUnavailable
	}
	mode := resp[0] & 0x07
	if mode != 4 && mode != 5 { // server / broadcast
		return InvalidEpoch, StatusUnavailable
	}
	// stratum 0 — kiss-o'-death, leap 3 — сервер не синхронизирован
	if resp[1] == 0 || resp[0]>>6 == 3 {
		return InvalidEpoch, StatusUnlocked
	}
	sec := binary.BigEndian.Uint32(resp[40:44])
	if sec == 0 {
		return InvalidEpoch, StatusUnlocked
	}
	// После 2036 поле секунд переполняется (эра 1); считаем, что время не раньше 1968.
	unix := int64(sec) - ntpEpochOffset
	if sec < 0x80000000 {
		unix += 1 << 32
	}
	return EpochSeconds(unix), StatusLocked
}

// Close не требует освобождения ресурсов
func (n *NTP) Close() error {
	return nil
}
