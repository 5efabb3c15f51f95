package world

import (
	"math"
	"math/rand"
)

// Octave описывает один слой шума: его разрешение равно size/Octet,
// вклад в итоговую карту высот - Weight.
type Octave struct {
	Octet  int     `json:"octet" yaml:"octet"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// DefaultOctaves - таблица октав ландшафта, веса в сумме дают 1.0
var DefaultOctaves = []Octave{
	{Octet: 2, Weight: 0.05},
	{Octet: 4, Weight: 0.05},
	{Octet: 8, Weight: 0.2},
	{Octet: 16, Weight: 0.2},
	{Octet: 32, Weight: 0.5},
}

// HeightField строит карту высот size x size (индекс [y][x]) как взвешенную
// сумму октав. Для каждой октавы берётся равномерная случайная сетка
// пониженного разрешения и гладко растягивается до полного размера.
func HeightField(size int, octaves []Octave, rng *rand.Rand) [][]float64 {
	field := newField(size, size)
	if size <= 0 {
		return field
	}

	for _, octave := range octaves {
		n := 1
		if octave.Octet > 0 && size/octave.Octet > 1 {
			n = size / octave.Octet
		}

		samples := newField(n, n)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				samples[y][x] = rng.Float64()
			}
		}

		upsampled := Upsample(samples, size)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				field[y][x] += upsampled[y][x] * octave.Weight
			}
		}
	}

	return field
}

// Upsample растягивает квадратную сетку n x n до size x size бикубической
// интерполяцией Катмулла-Рома. Крайние узлы исходной сетки совпадают
// с крайними узлами результата, за краем значения продолжаются константой.
func Upsample(samples [][]float64, size int) [][]float64 {
	n := len(samples)
	out := newField(size, size)
	if n == 0 || size <= 0 {
		return out
	}

	// Сначала по X для каждой исходной строки, затем по Y
	rows := newField(n, size)
	for y := 0; y < n; y++ {
		for x := 0; x < size; x++ {
			rows[y][x] = sample1D(func(i int) float64 { return samples[y][i] }, n, srcCoord(x, n, size))
		}
	}

	for y := 0; y < size; y++ {
		src := srcCoord(y, n, size)
		for x := 0; x < size; x++ {
			out[y][x] = sample1D(func(i int) float64 { return rows[i][x] }, n, src)
		}
	}
	return out
}

// srcCoord переводит индекс результата в координату исходной сетки
func srcCoord(i, n, size int) float64 {
	if n <= 1 || size <= 1 {
		return 0
	}
	return float64(i) * float64(n-1) / float64(size-1)
}

func sample1D(at func(int) float64, n int, src float64) float64 {
	i0 := int(math.Floor(src))
	t := src - float64(i0)

	p0 := at(clampIndex(i0-1, n))
	p1 := at(clampIndex(i0, n))
	p2 := at(clampIndex(i0+1, n))
	p3 := at(clampIndex(i0+2, n))
	return catmullRom(p0, p1, p2, p3, t)
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * (2*p1 +
		(p2-p0)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(3*p1-p0-3*p2+p3)*t3)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func newField(rows, cols int) [][]float64 {
	if rows < 0 {
		rows = 0
	}
	field := make([][]float64, rows)
	for i := range field {
		field[i] = make([]float64, cols)
	}
	return field
}
