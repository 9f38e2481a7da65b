package source

import "net"

// Connectivity — "доступен ли источник времени прямо сейчас". Проверка должна быть быстрой.
type Connectivity interface {
	Online() bool
}

// InterfaceConnectivity считает сеть доступной, если есть поднятый не-loopback
// интерфейс с адресом.
type InterfaceConnectivity struct{}

// Online перебирает сетевые интерфейсы.
func (InterfaceConnectivity) Online() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// Always — постоянный статус; для источников без сети (NMEA) и тестов.
type Always bool

// Online возвращает значение как есть.
func (a Always) Online() bool {
	return bool(a)
}
