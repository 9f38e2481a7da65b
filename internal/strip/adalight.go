package strip

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Adalight — лента за микроконтроллером с прошивкой Adalight на последовательном порту.
// Кадр: "Ada", hi, lo, hi^lo^0x55, затем R,G,B на каждый светодиод (hi/lo = n-1).
type Adalight struct {
	*Buffer
	w   io.Writer
	c   io.Closer
	out []byte
}

// OpenAdalight открывает порт (go.bug.st/serial) и создаёт Sink на n светодиодов.
func OpenAdalight(port string, baud, n int) (*Adalight, error) {
	if baud == 0 {
		baud = 115200
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("adalight open %s: %w", port, err)
	}
	return NewAdalight(p, n), nil
}

// NewAdalight создаёт Sink поверх произвольного writer (если он io.Closer — Close его закроет).
func NewAdalight(w io.Writer, n int) *Adalight {
	a := &Adalight{Buffer: NewBuffer(n), w: w}
	if c, ok := w.(io.Closer); ok {
		a.c = c
	}
	return a
}

// Flush отправляет кадр одним Write.
func (a *Adalight) Flush() error {
	a.out = encodeAdalight(a.out[:0], a.pix)
	_, err := a.w.Write(a.out)
	return err
}

// Close закрывает порт.
func (a *Adalight) Close() error {
	if a.c == nil {
		return nil
	}
	return a.c.Close()
}

func encodeAdalight(buf []byte, pix []RGB) []byte {
	count := len(pix) - 1
	if count < 0 {
		count = 0
	}
	hi, lo := byte(count>>8), byte(count)
	buf = append(buf, 'A', 'd', 'a', hi, lo, hi^lo^0x55)
	for _, p := range pix {
		buf = append(buf, p.R, p.G, p.B)
	}
	return buf
}

// ListPorts возвращает последовательные порты системы (для -list-ports).
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
