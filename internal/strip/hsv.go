package strip

// HSVToRGB — шестисекторное преобразование: hue 0–360, sat и bri 0–1.
// При sat <= 0 цвет ахроматический (r = g = b = bri).
func HSVToRGB(h, s, v float64) RGB {
	v = clamp01(v)
	s = clamp01(s)
	var r, g, b float64
	if s <= 0 {
		r, g, b = v, v, v
	} else {
		hh := h
		if hh >= 360 || hh < 0 {
			hh = 0
		}
		hh /= 60
		i := int(hh)
		ff := hh - float64(i)
		p := v * (1 - s)
		q := v * (1 - s*ff)
		t := v * (1 - s*(1-ff))
		switch i {
		case 0:
			r, g, b = v, t, p
		case 1:
			r, g, b = q, v, p
		case 2:
			r, g, b = p, v, t
		case 3:
			r, g, b = p, q, v
		case 4:
			r, g, b = t, p, v
		default:
			r, g, b = v, p, q
		}
	}
	return RGB{R: to8(r), G: to8(g), B: to8(b)}
}

func to8(x float64) uint8 {
	return uint8(x*255 + 0.5)
}

func clamp01(x float64) float64 {
	if x < 0 || x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
