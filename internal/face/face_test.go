package face

import (
	"reflect"
	"testing"
)

func day(brightness int) Display {
	return Display{On: true, Brightness: brightness}
}

func TestRender_Off(t *testing.T) {
	hue := 120.0
	theme := DefaultTheme()
	theme.Offset = 17
	for _, c := range []Clock{{0, 0, 0}, {12, 34, 56}, {23, 59, 59}} {
		frame := Render(c, Display{On: false, Brightness: 40, Hue: &hue}, theme)
		if len(frame) != theme.Elements {
			t.Fatalf("len(frame) = %d, want %d", len(frame), theme.Elements)
		}
		for i, e := range frame {
			if e.Bri != 0 {
				t.Errorf("%v: элемент %d горит при выключенном дисплее: %+v", c, i, e)
			}
		}
	}
}

func TestRender_TopOfHour(t *testing.T) {
	theme := DefaultTheme()
	frame := Render(Clock{Hour: 12}, day(10), theme)
	bg := frame[31] // не метка и не стрелка
	top := frame[0]
	if top.Bri <= bg.Bri {
		t.Errorf("метка 12 часов не ярче фона: top=%+v bg=%+v", top, bg)
	}
	if top.Hue != 180 {
		t.Errorf("секундная стрелка на 0: ожидали дополнительный оттенок 180, получили %v", top.Hue)
	}
	for _, i := range []int{1, 2, 58, 59} {
		if frame[i].Bri != 0 {
			t.Errorf("минутная стрелка (gap): элемент %d должен быть погашен, %+v", i, frame[i])
		}
	}
}

func TestRender_Hands(t *testing.T) {
	theme := DefaultTheme()
	frame := Render(Clock{Hour: 1, Minute: 20, Second: 21}, day(10), theme)
	hue := float64(80)
	if frame[21].Hue != hue+180 {
		t.Errorf("секунда 21: hue %v, ожидали %v", frame[21].Hue, hue+180)
	}
	if frame[21].Bri == 0 {
		t.Error("секундная стрелка внутри окрестности минуты не должна гаснуть")
	}
	for _, i := range []int{18, 19, 20, 22} {
		if frame[i].Bri != 0 {
			t.Errorf("элемент %d в окрестности минуты должен быть погашен", i)
		}
	}
	if frame[23].Bri == 0 {
		t.Error("элемент 23 вне окрестности минуты погашен")
	}

	theme.MinuteHand = HandBright
	frame = Render(Clock{Hour: 1, Minute: 20, Second: 40}, day(51), theme)
	for _, i := range []int{18, 19, 20, 21, 22} {
		if frame[i].Bri != 1 {
			t.Errorf("яркая стрелка: элемент %d bri=%v, ожидали 1", i, frame[i].Bri)
		}
	}
}

func TestRender_Night(t *testing.T) {
	theme := DefaultTheme()
	frame := Render(Clock{Hour: 3, Minute: 7, Second: 30}, day(theme.NightThreshold), theme)
	scale := float64(theme.BrightnessFactor*theme.NightThreshold) / 255
	if frame[7].Bri != scale || frame[7].Sat != 1 {
		t.Errorf("ночной режим: минута должна быть одним ярким пикселем, %+v", frame[7])
	}
	if frame[30].Hue != frame[31].Hue {
		t.Error("ночной режим: секундная стрелка не рисуется")
	}
	if frame[15].Sat != theme.BackgroundSaturation {
		t.Errorf("ночной режим: метки без изменения насыщенности, %+v", frame[15])
	}
}

func TestRender_Offset(t *testing.T) {
	theme := DefaultTheme()
	base := Render(Clock{Hour: 9, Minute: 41, Second: 5}, day(20), theme)
	for _, offset := range []int{43, -17, 120} {
		theme.Offset = offset
		rotated := Render(Clock{Hour: 9, Minute: 41, Second: 5}, day(20), theme)
		for i := range base {
			if rotated[mod(i+offset, len(base))] != base[i] {
				t.Fatalf("offset %d: элемент %d не совпадает", offset, i)
			}
		}
	}
}

func TestRender_Bounds(t *testing.T) {
	theme := DefaultTheme()
	hue := -30.0
	sat := 7.0
	d := Display{On: true, Brightness: 1000, Hue: &hue, Saturation: &sat}.Clamp(theme)
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 7 {
			for _, e := range Render(Clock{h, m, (h * m) % 60}, d, theme) {
				if e.Hue < 0 || e.Hue >= 360 {
					t.Fatalf("hue вне [0,360): %v", e.Hue)
				}
				if e.Sat < 0 || e.Sat > 1 || e.Bri < 0 || e.Bri > 1 {
					t.Fatalf("sat/bri вне [0,1]: %+v", e)
				}
			}
		}
	}
}

func TestRender_Idempotent(t *testing.T) {
	theme := DefaultTheme()
	c := Clock{Hour: 17, Minute: 3, Second: 44}
	a := Render(c, day(12), theme)
	b := Render(c, day(12), theme)
	if !reflect.DeepEqual(a, b) {
		t.Error("Render с одинаковыми аргументами дал разные кадры")
	}
}

func TestDisplay_Clamp(t *testing.T) {
	theme := DefaultTheme()
	hue := 725.0
	sat := -0.5
	got := Display{On: true, Brightness: 0, Hue: &hue, Saturation: &sat}.Clamp(theme)
	if got.Brightness != 1 {
		t.Errorf("brightness: got %d want 1", got.Brightness)
	}
	if *got.Hue != 5 {
		t.Errorf("hue: got %v want 5", *got.Hue)
	}
	if *got.Saturation != 0 {
		t.Errorf("saturation: got %v want 0", *got.Saturation)
	}
	if hue != 725 {
		t.Error("Clamp изменил исходное значение")
	}
	got = Display{Brightness: 300}.Clamp(theme)
	if got.Brightness != theme.MaxLevel() {
		t.Errorf("brightness: got %d want %d", got.Brightness, theme.MaxLevel())
	}
}
