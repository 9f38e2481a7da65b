package strip

import (
	"fmt"
	"io"

	"github.com/shiwa/ringclock/internal/config"
)

// Open создаёт драйвер ленты по секции strip. Выбор делается один раз при старте.
func Open(c config.StripConfig, n int, console io.Writer) (Device, error) {
	switch c.Driver {
	case "console":
		return NewConsole(console, n), nil
	case "adalight":
		if c.Port == "" {
			return nil, fmt.Errorf("adalight: port required")
		}
		return OpenAdalight(c.Port, c.Baud, n)
	case "apa102":
		return OpenAPA102(c.SPI, c.SPIHz, n)
	default:
		return nil, fmt.Errorf("unknown strip driver: %s", c.Driver)
	}
}
