package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsample_Constant(t *testing.T) {
	samples := [][]float64{{0.3, 0.3}, {0.3, 0.3}}
	out := Upsample(samples, 16)

	require.Len(t, out, 16)
	for y := range out {
		require.Len(t, out[y], 16)
		for x := range out[y] {
			assert.InDelta(t, 0.3, out[y][x], 1e-12)
		}
	}
}

func TestUpsample_CornersMatchSamples(t *testing.T) {
	samples := [][]float64{
		{0.1, 0.9, 0.4},
		{0.7, 0.2, 0.5},
		{0.0, 1.0, 0.6},
	}
	out := Upsample(samples, 9)

	assert.InDelta(t, 0.1, out[0][0], 1e-12)
	assert.InDelta(t, 0.4, out[0][8], 1e-12)
	assert.InDelta(t, 0.0, out[8][0], 1e-12)
	assert.InDelta(t, 0.6, out[8][8], 1e-12)
	// Средний узел исходной сетки попадает в центр результата
	assert.InDelta(t, 0.2, out[4][4], 1e-12)
}

func TestUpsample_SameSizeIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := newField(5, 5)
	for y := range samples {
		for x := range samples[y] {
			samples[y][x] = rng.Float64()
		}
	}

	out := Upsample(samples, 5)
	for y := range samples {
		for x := range samples[y] {
			assert.InDelta(t, samples[y][x], out[y][x], 1e-12)
		}
	}
}

func TestHeightField_Deterministic(t *testing.T) {
	a := HeightField(32, DefaultOctaves, rand.New(rand.NewSource(42)))
	b := HeightField(32, DefaultOctaves, rand.New(rand.NewSource(42)))
	c := HeightField(32, DefaultOctaves, rand.New(rand.NewSource(43)))

	assert.Equal(t, a, b, "Одинаковый сид должен давать одинаковую карту высот")
	assert.NotEqual(t, a, c)
}

func TestHeightField_Range(t *testing.T) {
	field := HeightField(64, DefaultOctaves, rand.New(rand.NewSource(1)))
	require.Len(t, field, 64)

	inside := 0
	for y := range field {
		require.Len(t, field[y], 64)
		for x := range field[y] {
			// Кубическая интерполяция может немного выходить за [0, 1]
			assert.Greater(t, field[y][x], -0.3)
			assert.Less(t, field[y][x], 1.3)
			if field[y][x] >= 0 && field[y][x] <= 1 {
				inside++
			}
		}
	}
	assert.Greater(t, inside, 64*64*95/100, "Почти все значения должны лежать в [0, 1]")
}

func TestHeightField_SmallWorld(t *testing.T) {
	// Октавы крупнее мира вырождаются в одну случайную величину
	field := HeightField(4, []Octave{{Octet: 32, Weight: 1}}, rand.New(rand.NewSource(3)))
	for y := range field {
		for x := range field[y] {
			assert.InDelta(t, field[0][0], field[y][x], 1e-12)
		}
	}
}

func TestDefaultOctaves_WeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, o := range DefaultOctaves {
		sum += o.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}
