package clocksync

// driftWindow — число последних якорей в регрессии.
const driftWindow = 16

// driftEstimator оценивает уход монотонного счётчика относительно источника времени
// линейной регрессией по окну якорей: x — секунды источника от первого якоря,
// y — на сколько миллисекунд счётчик ушёл вперёд. Наклон в мс/с, умноженный на 1000, — ppm.
// На отображаемое время не влияет: якорь по-прежнему только экстраполируется.
type driftEstimator struct {
	xs  [driftWindow]float64
	ys  [driftWindow]float64
	n   int
	idx int

	prev      *Anchor
	elapsedX  float64 // секунды источника от первого якоря
	elapsedMs float64 // миллисекунды счётчика от первого якоря
}

// add добавляет новый якорь. Шаг эпохи назад сбрасывает окно.
func (d *driftEstimator) add(a Anchor) {
	if d.prev != nil && a.Epoch <= d.prev.Epoch {
		d.reset()
	}
	if d.prev != nil {
		d.elapsedX += float64(a.Epoch - d.prev.Epoch)
		d.elapsedMs += float64(a.Reference.Since(d.prev.Reference))
	}
	prev := a
	d.prev = &prev

	d.xs[d.idx] = d.elapsedX
	d.ys[d.idx] = d.elapsedMs - d.elapsedX*1000
	d.idx = (d.idx + 1) % driftWindow
	if d.n < driftWindow {
		d.n++
	}
}

// ppm возвращает оценку ухода счётчика; false, пока точек меньше трёх.
func (d *driftEstimator) ppm() (float64, bool) {
	if d.n < 3 {
		return 0, false
	}
	n := float64(d.n)
	var sumX, sumY, sumXY, sumX2 float64
	for i := 0; i < d.n; i++ {
		sumX += d.xs[i]
		sumY += d.ys[i]
		sumXY += d.xs[i] * d.ys[i]
		sumX2 += d.xs[i] * d.xs[i]
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	slope := (n*sumXY - sumX*sumY) / denom // мс/с
	return slope * 1000, true
}

func (d *driftEstimator) reset() {
	*d = driftEstimator{}
}
