package source

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/shiwa/ringclock/internal/config"
)

func ntpResponse(li, mode, stratum byte, sec uint32) []byte {
	resp := make([]byte, 48)
	resp[0] = li<<6 | 4<<3 | mode
	resp[1] = stratum
	binary.BigEndian.PutUint32(resp[40:44], sec)
	return resp
}

func TestParseNTPResponse(t *testing.T) {
	want := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC).Unix()
	sec := uint32(want + ntpEpochOffset)

	t.Run("server", func(t *testing.T) {
		got, st := parseNTPResponse(ntpResponse(0, 4, 2, sec))
		if st != StatusLocked || int64(got) != want {
			t.Errorf("got %d %v, want %d locked", got, st, want)
		}
	})
	t.Run("kiss-o'-death", func(t *testing.T) {
		if got, st := parseNTPResponse(ntpResponse(0, 4, 0, sec)); st.IsUsable() || got.Valid() {
			t.Errorf("stratum 0 должен быть непригоден: %d %v", got, st)
		}
	})
	t.Run("не синхронизирован", func(t *testing.T) {
		if _, st := parseNTPResponse(ntpResponse(3, 4, 2, sec)); st.IsUsable() {
			t.Error("leap=3 должен быть непригоден")
		}
	})
	t.Run("не ответ сервера", func(t *testing.T) {
		if _, st := parseNTPResponse(ntpResponse(0, 3, 2, sec)); st != StatusUnavailable {
			t.Errorf("mode 3: %v", st)
		}
	})
	t.Run("эра 1", func(t *testing.T) {
		got, st := parseNTPResponse(ntpResponse(0, 4, 2, 100))
		wantEra1 := int64(100) + 1<<32 - ntpEpochOffset
		if st != StatusLocked || int64(got) != wantEra1 {
			t.Errorf("got %d, want %d", got, wantEra1)
		}
	})
	t.Run("короткий", func(t *testing.T) {
		if _, st := parseNTPResponse(make([]byte, 10)); st != StatusUnavailable {
			t.Errorf("короткий ответ: %v", st)
		}
	})
}

func TestParseRMC(t *testing.T) {
	tests := []struct {
		line string
		want time.Time
		ok   bool
	}{
		{"$GPRMC,123519.00,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
			time.Date(1994, 3, 23, 12, 35, 19, 0, time.UTC), true},
		{"$GNRMC,000001,A,4807.038,N,01131.000,E,0,0,150125,,*00",
			time.Date(2025, 1, 15, 0, 0, 1, 0, time.UTC), true},
		{"$GPRMC,123519,V,,,,,,,230394,,*00", time.Time{}, false},
		{"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47", time.Time{}, false},
		{"$GPRMC,12x519,A,,,,,,,230394,,*00", time.Time{}, false},
		{"garbage", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseRMC(tt.line)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("parseRMC(%q) = %v %v, want %v %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

// ntpServer отвечает на каждый запрос следующей секундой, начиная с first.
func ntpServer(t *testing.T, first uint32) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("udp недоступен: %v", err)
	}
	go func() {
		buf := make([]byte, 48)
		sec := first
		for {
			_, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			conn.WriteToUDP(ntpResponse(0, 4, 2, sec), from)
			sec++
		}
	}()
	return conn
}

func TestNTP_KeepsResolvedAddress(t *testing.T) {
	srv := ntpServer(t, 3900000000)
	n := NewNTP(srv.LocalAddr().String(), 300*time.Millisecond)

	first, st := n.QuerySecond()
	if st != StatusLocked {
		t.Fatalf("первый запрос: %v", st)
	}
	addr := n.addr
	if addr == nil {
		t.Fatal("адрес не сохранён")
	}
	second, st := n.QuerySecond()
	if st != StatusLocked || second != first+1 {
		t.Fatalf("второй запрос: %d %v, ожидали %d", second, st, first+1)
	}
	if n.addr != addr {
		t.Error("адрес разрешён заново, хотя сервер отвечал")
	}

	srv.Close()
	if _, st := n.QuerySecond(); st.IsUsable() {
		t.Fatal("сервер закрыт, ожидали unavailable")
	}
	if n.addr != nil {
		t.Error("после неудачи адрес должен разрешаться заново")
	}
}

// queuedPort — порт приёмника: queued уже лежит в буфере tty, arriving придёт после Flush.
// Read отдаёт по одной строке.
type queuedPort struct {
	queued   []string
	arriving []string
	flushes  int
}

func (p *queuedPort) Read(b []byte) (int, error) {
	for _, q := range []*[]string{&p.queued, &p.arriving} {
		if len(*q) > 0 {
			n := copy(b, (*q)[0])
			*q = (*q)[1:]
			return n, nil
		}
	}
	return 0, io.EOF
}

func (p *queuedPort) Flush() error {
	p.queued = nil
	p.flushes++
	return nil
}

func (p *queuedPort) Close() error { return nil }

func TestNMEA_QuerySecondSkipsQueuedSentences(t *testing.T) {
	port := &queuedPort{
		queued: []string{
			"$GPRMC,100000.00,A,4807.038,N,01131.000,E,0,0,170526,,*00\r\n",
			"$GPRMC,100001.00,A,4807.038,N,01131.000,E,0,0,170526,,*00\r\n",
		},
		arriving: []string{
			"$GPGGA,100007,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n",
			"$GPRMC,100007.00,A,4807.038,N,01131.000,E,0,0,170526,,*00\r\n",
		},
	}
	n := newNMEA(port, "test", 0)

	sec, st := n.QuerySecond()
	want := EpochSeconds(time.Date(2026, 5, 17, 10, 0, 7, 0, time.UTC).Unix())
	if st != StatusLocked || sec != want {
		t.Fatalf("ожидали свежий RMC %d, получили %d %v", want, sec, st)
	}
	if port.flushes != 1 {
		t.Errorf("перед чтением ввод должен сбрасываться, flushes=%d", port.flushes)
	}

	// новых предложений нет: прошлая секунда не выдаётся за текущую
	port.queued = []string{"$GPRMC,100008.00,A,4807.038,N,01131.000,E,0,0,170526,,*00\r\n"}
	sec, st = n.QuerySecond()
	if st.IsUsable() || sec.Valid() {
		t.Errorf("без свежего RMC ожидали unlocked, получили %d %v", sec, st)
	}
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(config.SourceConfig{Protocol: "ntp", IP: "192.0.2.1"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "ntp:192.0.2.1" || c.Protocol() != "ntp" {
		t.Errorf("ntp: %s %s", c.Name(), c.Protocol())
	}
	for _, bad := range []config.SourceConfig{
		{Protocol: "ntp"},
		{Protocol: "ntp", IP: "x", Disable: true},
		{Protocol: "ptp"},
	} {
		if _, err := NewFromConfig(bad); err == nil {
			t.Errorf("%+v: ожидали ошибку", bad)
		}
	}
}

func TestEpochSeconds_Valid(t *testing.T) {
	if InvalidEpoch.Valid() {
		t.Error("InvalidEpoch.Valid() = true")
	}
	if !EpochSeconds(0).Valid() {
		t.Error("0 должно быть валидным")
	}
	if Always(true).Online() != true || Always(false).Online() != false {
		t.Error("Always")
	}
}

func TestConnectivityFor(t *testing.T) {
	ntp := []config.SourceConfig{{Protocol: "ntp", IP: "a"}}
	nmea := []config.SourceConfig{{Protocol: "nmea"}}
	if _, ok := ConnectivityFor(ntp).(InterfaceConnectivity); !ok {
		t.Error("только ntp: ожидали проверку интерфейсов")
	}
	if c := ConnectivityFor(ntp, nmea); c != Always(true) {
		t.Errorf("ntp + nmea: ожидали Always(true), получили %v", c)
	}
	disabled := []config.SourceConfig{{Protocol: "nmea", Disable: true}}
	if _, ok := ConnectivityFor(ntp, disabled).(InterfaceConnectivity); !ok {
		t.Error("выключенный nmea не учитывается")
	}
}
