package strip

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// APA102 — лента APA102/SK9822 на шине SPI (periph).
type APA102 struct {
	*Buffer
	port spi.PortCloser
	conn spi.Conn
	out  []byte
}

// OpenAPA102 инициализирует драйверы periph и открывает шину. name пустое — первая шина.
func OpenAPA102(name string, hz int64, n int) (*APA102, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	if hz <= 0 {
		hz = 4_000_000
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spireg.Open %q: %w", name, err)
	}
	c, err := p.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("spi connect %q: %w", name, err)
	}
	return &APA102{Buffer: NewBuffer(n), port: p, conn: c}, nil
}

// Flush отправляет кадр: стартовые 4 нуля, по 4 байта на светодиод, завершающие 0xFF.
func (a *APA102) Flush() error {
	a.out = encodeAPA102(a.out[:0], a.pix)
	return a.conn.Tx(a.out, nil)
}

// Close закрывает шину.
func (a *APA102) Close() error {
	return a.port.Close()
}

func encodeAPA102(buf []byte, pix []RGB) []byte {
	buf = append(buf, 0, 0, 0, 0)
	for _, p := range pix {
		// глобальная яркость 31/31: яркость уже учтена в RGB
		buf = append(buf, 0xE0|31, p.B, p.G, p.R)
	}
	for i := 0; i < (len(pix)+15)/16; i++ {
		buf = append(buf, 0xFF)
	}
	return buf
}
