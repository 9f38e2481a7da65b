// Package strip — вывод кадра на светодиодную ленту. Ядро видит только Sink;
// конкретный драйвер (serial/SPI/консоль) выбирается один раз при старте.
package strip

// Sink принимает цвета светодиодов и фиксирует кадр одним вызовом Flush.
type Sink interface {
	// SetElement задаёт цвет светодиода: hue 0–360, sat и bri 0–1.
	SetElement(index int, hue, sat, bri float64)
	// Flush отправляет накопленный кадр на ленту.
	Flush() error
}

// Device — Sink с освобождением ресурсов (порт, шина).
type Device interface {
	Sink
	Close() error
}

// RGB — цвет пикселя после преобразования.
type RGB struct {
	R, G, B uint8
}

// Buffer хранит RGB кадра; общая часть всех драйверов.
type Buffer struct {
	pix []RGB
}

// NewBuffer создаёт буфер на n светодиодов.
func NewBuffer(n int) *Buffer {
	return &Buffer{pix: make([]RGB, n)}
}

// SetElement переводит HSV в RGB; индексы вне ленты игнорируются.
func (b *Buffer) SetElement(index int, hue, sat, bri float64) {
	if index < 0 || index >= len(b.pix) {
		return
	}
	b.pix[index] = HSVToRGB(hue, sat, bri)
}

// Len — число светодиодов.
func (b *Buffer) Len() int {
	return len(b.pix)
}

// Pixels возвращает текущее содержимое (без копирования).
func (b *Buffer) Pixels() []RGB {
	return b.pix
}
