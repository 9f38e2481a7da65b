package source

import (
	"fmt"
	"time"

	"github.com/shiwa/ringclock/internal/config"
)

// NewFromConfig создаёт Client из секции time.primary_sources / secondary_sources
func NewFromConfig(c config.SourceConfig) (Client, error) {
	if c.Disable {
		return nil, fmt.Errorf("source disabled")
	}
	switch c.Protocol {
	case "ntp":
		if c.IP == "" {
			return nil, fmt.Errorf("ntp: ip required")
		}
		return NewNTP(c.IP, config.ParseDuration(c.Timeout, 500*time.Millisecond)), nil
	case "nmea":
		dev := c.Device
		if dev == "" {
			dev = "/dev/ttyS0"
		}
		return NewNMEA(dev, c.Baud, config.ParseDuration(c.Offset, 0))
	default:
		return nil, fmt.Errorf("unknown protocol: %s", c.Protocol)
	}
}

// ConnectivityFor выбирает проверку сети: если все источники сетевые (ntp), синхронизация
// имеет смысл только при поднятом интерфейсе; локальный приёмник (nmea) доступен всегда.
func ConnectivityFor(sources ...[]config.SourceConfig) Connectivity {
	network := false
	for _, group := range sources {
		for _, c := range group {
			if c.Disable {
				continue
			}
			if c.Protocol != "ntp" {
				return Always(true)
			}
			network = true
		}
	}
	if !network {
		return Always(true)
	}
	return InterfaceConnectivity{}
}
