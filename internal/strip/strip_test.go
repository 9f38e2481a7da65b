package strip

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shiwa/ringclock/internal/config"
)

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		want    RGB
	}{
		{"красный", 0, 1, 1, RGB{255, 0, 0}},
		{"зелёный", 120, 1, 1, RGB{0, 255, 0}},
		{"синий", 240, 1, 1, RGB{0, 0, 255}},
		{"жёлтый", 60, 1, 1, RGB{255, 255, 0}},
		{"пурпурный", 300, 1, 1, RGB{255, 0, 255}},
		{"ахроматический", 200, 0, 0.5, RGB{128, 128, 128}},
		{"погашен", 90, 1, 0, RGB{0, 0, 0}},
		{"360 как 0", 360, 1, 1, RGB{255, 0, 0}},
		{"половина насыщенности", 0, 0.5, 1, RGB{255, 128, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HSVToRGB(tt.h, tt.s, tt.v); got != tt.want {
				t.Errorf("HSVToRGB(%v,%v,%v) = %v, want %v", tt.h, tt.s, tt.v, got, tt.want)
			}
		})
	}
}

func TestBuffer_IgnoresOutOfRange(t *testing.T) {
	b := NewBuffer(3)
	b.SetElement(-1, 0, 1, 1)
	b.SetElement(3, 0, 1, 1)
	b.SetElement(1, 0, 1, 1)
	want := []RGB{{}, {255, 0, 0}, {}}
	for i, p := range b.Pixels() {
		if p != want[i] {
			t.Errorf("pixel %d = %v, want %v", i, p, want[i])
		}
	}
}

func TestAdalight_Frame(t *testing.T) {
	var out bytes.Buffer
	a := NewAdalight(&out, 2)
	a.SetElement(0, 0, 1, 1)
	a.SetElement(1, 240, 1, 1)
	if err := a.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []byte{'A', 'd', 'a', 0, 1, 0 ^ 1 ^ 0x55, 255, 0, 0, 0, 0, 255}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("кадр Adalight: % x, want % x", out.Bytes(), want)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close без io.Closer: %v", err)
	}
}

func TestEncodeAPA102(t *testing.T) {
	pix := make([]RGB, 17)
	pix[0] = RGB{1, 2, 3}
	buf := encodeAPA102(nil, pix)
	if len(buf) != 4+17*4+2 {
		t.Fatalf("длина кадра APA102: %d", len(buf))
	}
	if !bytes.Equal(buf[:8], []byte{0, 0, 0, 0, 0xFF, 3, 2, 1}) {
		t.Errorf("начало кадра: % x", buf[:8])
	}
	if buf[len(buf)-1] != 0xFF || buf[len(buf)-2] != 0xFF {
		t.Error("нет завершающих 0xFF")
	}
}

func TestConsole_Flush(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, 12)
	c.SetElement(0, 0, 1, 1)
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out.String(), "●"); n != 12 {
		t.Errorf("консоль: %d точек, ожидали 12", n)
	}
	if !strings.HasPrefix(out.String(), "\r") {
		t.Error("строка должна начинаться с \\r")
	}
}

func TestOpen(t *testing.T) {
	var out bytes.Buffer
	d, err := Open(config.StripConfig{Driver: "console"}, 60, &out)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*Console); !ok {
		t.Errorf("console: %T", d)
	}
	for _, bad := range []config.StripConfig{{Driver: "adalight"}, {Driver: "ws2801"}} {
		if _, err := Open(bad, 60, &out); err == nil {
			t.Errorf("%+v: ожидали ошибку", bad)
		}
	}
}
