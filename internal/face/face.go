// Package face строит кадр циферблата: по времени суток и настройкам дисплея
// возвращает (hue, saturation, brightness) для каждого светодиода кольца.
// Render — чистая функция: одинаковые аргументы дают одинаковый кадр.
package face

import "math"

// Element — цвет одного светодиода. Hue в градусах [0, 360), Sat и Bri в [0, 1].
type Element struct {
	Hue float64
	Sat float64
	Bri float64
}

// Frame — кадр, по одному элементу на светодиод, в физическом порядке кольца.
type Frame []Element

// Clock — локальное время суток.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// HandPolicy — как рисуется минутная стрелка в дневном режиме.
type HandPolicy string

const (
	// HandGap — стрелка как разрыв: окрестность минуты гасится.
	HandGap HandPolicy = "gap"
	// HandBright — стрелка как яркий участок.
	HandBright HandPolicy = "bright"
)

// Theme — декларативное описание циферблата. Альтернативные стили задаются данными.
type Theme struct {
	Elements int // число светодиодов кольца
	Offset   int // физический индекс светодиода "12 часов"

	// BrightnessFactor переводит уровень яркости в долю: min(1, factor*level/255).
	BrightnessFactor int
	// NightThreshold — уровень яркости, на котором и ниже включается ночной режим:
	// без насыщенных меток и секундной стрелки, минута одним ярким пикселем.
	NightThreshold int

	BackgroundSaturation float64
	BackgroundBrightness float64
	TickSaturation       float64
	TickBrightness       float64
	QuarterBrightness    float64

	MinuteHand       HandPolicy
	MinuteHandRadius int
}

// DefaultTheme — кольцо из 60 светодиодов.
func DefaultTheme() Theme {
	return Theme{
		Elements:             60,
		Offset:               0,
		BrightnessFactor:     5,
		NightThreshold:       4,
		BackgroundSaturation: 1.0,
		BackgroundBrightness: 0.05,
		TickSaturation:       0.75,
		TickBrightness:       0.1,
		QuarterBrightness:    0.2,
		MinuteHand:           HandGap,
		MinuteHandRadius:     2,
	}
}

// MaxLevel — максимальный уровень яркости для темы (255 / BrightnessFactor).
func (t Theme) MaxLevel() int {
	if t.BrightnessFactor <= 0 {
		return 255
	}
	return 255 / t.BrightnessFactor
}

// Display — снимок внешних настроек дисплея.
type Display struct {
	On         bool
	Brightness int      // уровень 1..Theme.MaxLevel()
	Hue        *float64 // фиксированный фон вместо оттенка по времени суток
	Saturation *float64 // насыщенность фона вместо Theme.BackgroundSaturation
}

// Clamp приводит значения к допустимым границам темы. Указатели копируются.
func (d Display) Clamp(t Theme) Display {
	out := Display{On: d.On, Brightness: d.Brightness}
	if out.Brightness < 1 {
		out.Brightness = 1
	}
	if maxLevel := t.MaxLevel(); out.Brightness > maxLevel {
		out.Brightness = maxLevel
	}
	if d.Hue != nil {
		h := wrapHue(*d.Hue)
		out.Hue = &h
	}
	if d.Saturation != nil {
		s := clamp01(*d.Saturation)
		out.Saturation = &s
	}
	return out
}

// Night сообщает, что уровень яркости выбирает ночной режим.
func (d Display) Night(t Theme) bool {
	return d.Brightness <= t.NightThreshold
}

// BaseHue — оттенок фона: минута суток по модулю 360 либо заданный.
func BaseHue(c Clock, d Display) float64 {
	if d.Hue != nil {
		return wrapHue(*d.Hue)
	}
	return float64((c.Hour*60 + c.Minute) % 360)
}

// Render строит кадр. При выключенном дисплее все элементы погашены.
func Render(c Clock, d Display, t Theme) Frame {
	n := t.Elements
	if n <= 0 {
		return Frame{}
	}
	frame := make(Frame, n)
	if !d.On {
		return frame
	}

	hue := BaseHue(c, d)
	sat := t.BackgroundSaturation
	if d.Saturation != nil {
		sat = *d.Saturation
	}
	logical := make(Frame, n)
	for i := range logical {
		logical[i] = Element{Hue: hue, Sat: sat, Bri: t.BackgroundBrightness}
	}

	night := d.Night(t)
	second := index(c.Second, 60, n)
	minute := index(c.Minute, 60, n)

	// Часовые метки, каждая третья — четверть часа
	for i := 0; i < 12; i++ {
		led := i * n / 12
		if i%3 == 0 {
			logical[led].Bri = t.QuarterBrightness
		} else {
			logical[led].Bri = t.TickBrightness
		}
		if !night {
			logical[led].Sat = t.TickSaturation
		}
	}

	if night {
		logical[minute].Bri = 1
		logical[minute].Sat = 1
	} else {
		for k := -t.MinuteHandRadius; k <= t.MinuteHandRadius; k++ {
			led := mod(minute+k, n)
			if led == second {
				continue
			}
			switch t.MinuteHand {
			case HandBright:
				logical[led].Bri = 1
			default:
				logical[led].Bri = 0
			}
		}
		logical[second].Hue = wrapHue(hue + 180)
	}

	scale := levelScale(d.Brightness, t.BrightnessFactor)
	for i, e := range logical {
		e.Sat = clamp01(e.Sat)
		e.Bri = clamp01(e.Bri) * scale
		frame[mod(i+t.Offset, n)] = e
	}
	return frame
}

// index переводит позицию из шкалы units (60 минут/секунд) в индекс светодиода.
func index(v, units, n int) int {
	return mod(v, units) * n / units
}

func levelScale(level, factor int) float64 {
	if factor <= 0 {
		factor = 1
	}
	s := float64(factor*level) / 255
	return clamp01(s)
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

func wrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
