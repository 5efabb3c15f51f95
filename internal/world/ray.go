package world

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// RayState - состояние трассировки луча
type RayState int

const (
	RayTraveling RayState = iota // луч ещё идёт по миру
	RayHit                       // луч упёрся в непустой блок
	RayExhausted                 // луч покинул мир или исчерпал лимит
)

// String возвращает строковое представление состояния
func (s RayState) String() string {
	switch s {
	case RayTraveling:
		return "traveling"
	case RayHit:
		return "hit"
	case RayExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MarshalText кодирует состояние строкой в JSON
func (s RayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VoxelReader - источник вокселей для трассировки.
// Get обязан возвращать OutOfRange для позиций вне мира.
type VoxelReader interface {
	Size() int
	Get(pos vec.Vec3) int
}

// CastOptions задаёт ограничения и обратные вызовы трассировки
type CastOptions struct {
	MaxSteps    int     // 0 - по умолчанию 3*size+3
	MaxDistance float64 // 0 - без ограничения

	// Visit вызывается для каждой посещённой ячейки внутри мира,
	// length - расстояние от начала луча до входа в ячейку.
	Visit func(cell vec.Vec3, length float64)
	// OnHit вызывается один раз при попадании
	OnHit func(result RayResult)
}

// RayResult - итог трассировки
type RayResult struct {
	State    RayState      `json:"state"`
	Hit      bool          `json:"hit"`
	Cell     vec.Vec3      `json:"cell"`
	Block    block.BlockID `json:"block"`
	Distance float64       `json:"distance"`
	Normal   vec.Vec3      `json:"normal"` // грань, через которую луч вошёл в ячейку
	Steps    int           `json:"steps"`
}

// Ray - луч, проходящий мир ячейка за ячейкой (алгоритм DDA)
type Ray struct {
	Origin    vec.Vec3Float
	Direction vec.Vec3Float
	Cell      vec.Vec3      // текущая ячейка
	Fraction  vec.Vec3Float // положение текущей точки внутри ячейки, [0, 1]^3
	Length    float64       // пройденное расстояние от Origin
	State     RayState
}

// NewRay создаёт луч; направление нормализуется при трассировке
func NewRay(origin, direction vec.Vec3Float) *Ray {
	return &Ray{
		Origin:    origin,
		Direction: direction,
		Cell:      origin.Floor(),
		State:     RayTraveling,
	}
}

func isFinite(v vec.Vec3Float) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Cast проводит луч через мир до первого непустого блока.
// Луч сначала обрезается кубом мира; луч, который в мир не входит,
// завершается без единого вызова Visit. Так же завершается луч
// с NaN или бесконечностью в начале или направлении. При равенстве расстояний
// до границ шаг делается по оси x, затем y, затем z.
func (r *Ray) Cast(grid VoxelReader, opts CastOptions) RayResult {
	r.State = RayTraveling
	r.Length = 0

	if !isFinite(r.Origin) || !isFinite(r.Direction) {
		return r.finish(RayResult{State: RayExhausted})
	}

	dir := r.Direction.Normalize()
	size := grid.Size()
	if dir.Length() == 0 || size <= 0 {
		return r.finish(RayResult{State: RayExhausted})
	}

	tEnter, tExit, entryAxis, ok := clipToBox(r.Origin, dir, float64(size))
	if !ok {
		return r.finish(RayResult{State: RayExhausted})
	}

	var (
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
		normal vec.Vec3
	)

	entry := r.Origin.Add(dir.Mul(tEnter))
	cell := entry.Floor()
	for axis := 0; axis < 3; axis++ {
		c := cell.Axis(axis)
		if c < 0 {
			c = 0
		}
		if c > size-1 {
			c = size - 1
		}

		d := dir.Axis(axis)
		o := r.Origin.Axis(axis)
		switch {
		case d > 0:
			step[axis] = 1
			tDelta[axis] = 1 / d
			tMax[axis] = (float64(c+1) - o) / d
		case d < 0:
			step[axis] = -1
			tDelta[axis] = -1 / d
			tMax[axis] = (float64(c) - o) / d
		default:
			tDelta[axis] = math.Inf(1)
			tMax[axis] = math.Inf(1)
		}
		cell = cell.WithAxis(axis, c)
	}
	if entryAxis >= 0 {
		normal = normal.WithAxis(entryAxis, -step[entryAxis])
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 3*size + 3
	}
	maxDistance := opts.MaxDistance
	if maxDistance <= 0 {
		maxDistance = math.Inf(1)
	}

	r.Cell = cell
	r.Length = tEnter
	steps := 0

	for {
		r.updateFraction(dir)

		if r.Length > maxDistance || r.Length >= tExit {
			return r.finish(RayResult{State: RayExhausted, Cell: r.Cell, Distance: r.Length, Steps: steps})
		}

		id := grid.Get(r.Cell)
		if id == OutOfRange {
			return r.finish(RayResult{State: RayExhausted, Cell: r.Cell, Distance: r.Length, Steps: steps})
		}

		if opts.Visit != nil {
			opts.Visit(r.Cell, r.Length)
		}

		if id != int(block.AirBlockID) {
			result := r.finish(RayResult{
				State:    RayHit,
				Hit:      true,
				Cell:     r.Cell,
				Block:    block.BlockID(id),
				Distance: r.Length,
				Normal:   normal,
				Steps:    steps,
			})
			if opts.OnHit != nil {
				opts.OnHit(result)
			}
			return result
		}

		if steps >= maxSteps {
			return r.finish(RayResult{State: RayExhausted, Cell: r.Cell, Distance: r.Length, Steps: steps})
		}

		axis := nearestAxis(tMax)
		r.Cell = r.Cell.WithAxis(axis, r.Cell.Axis(axis)+step[axis])
		r.Length = tMax[axis]
		tMax[axis] += tDelta[axis]
		normal = vec.Vec3{}.WithAxis(axis, -step[axis])
		steps++
	}
}

// Point возвращает текущую точку луча
func (r *Ray) Point() vec.Vec3Float {
	return r.Origin.Add(r.Direction.Normalize().Mul(r.Length))
}

func (r *Ray) updateFraction(dir vec.Vec3Float) {
	p := r.Origin.Add(dir.Mul(r.Length))
	r.Fraction = p.Sub(r.Cell.ToFloat())
}

func (r *Ray) finish(result RayResult) RayResult {
	r.State = result.State
	if result.Hit {
		raycastsTotal.WithLabelValues("hit").Inc()
	} else {
		raycastsTotal.WithLabelValues("exhausted").Inc()
	}
	return result
}

// nearestAxis выбирает ось с ближайшей границей, при равенстве x < y < z
func nearestAxis(tMax [3]float64) int {
	if tMax[0] <= tMax[1] && tMax[0] <= tMax[2] {
		return 0
	}
	if tMax[1] <= tMax[2] {
		return 1
	}
	return 2
}

// clipToBox пересекает луч с кубом [0, size)^3 методом плит.
// Возвращает параметры входа и выхода и ось, через грань которой луч входит
// (-1, если начало луча уже внутри куба).
func clipToBox(origin, dir vec.Vec3Float, size float64) (tEnter, tExit float64, entryAxis int, ok bool) {
	tEnter = 0
	tExit = math.Inf(1)
	entryAxis = -1

	for axis := 0; axis < 3; axis++ {
		o := origin.Axis(axis)
		d := dir.Axis(axis)

		if d == 0 {
			if o < 0 || o >= size {
				return 0, 0, -1, false
			}
			continue
		}

		t1 := (0 - o) / d
		t2 := (size - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
			entryAxis = axis
		}
		if t2 < tExit {
			tExit = t2
		}
	}

	if tEnter >= tExit {
		return 0, 0, -1, false
	}
	return tEnter, tExit, entryAxis, true
}
