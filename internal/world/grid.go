package world

import (
	"errors"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// OutOfRange возвращается Get для позиций вне мира.
// Не совпадает ни с одним допустимым BlockID.
const OutOfRange = -1

// DefaultSun - направление на солнце до нормализации
var DefaultSun = vec.Vec3Float{X: 1, Y: 2, Z: -3}

// Grid представляет кубический мир из size^3 вокселей.
// Воксели хранятся одним непрерывным массивом в порядке z, y, x:
// index = z*size*size + y*size + x.
//
// Grid не потокобезопасен: конкурентный доступ обеспечивает World.
type Grid struct {
	size     int
	layer    int    // size*size
	voxels   []byte // BlockID хранится как байт
	sun      vec.Vec3Float
	registry *block.Registry
}

// NewGrid создаёт пустой мир со стандартным направлением солнца
func NewGrid(size int, registry *block.Registry) *Grid {
	return &Grid{
		size:     size,
		layer:    size * size,
		voxels:   make([]byte, size*size*size),
		sun:      DefaultSun.Normalize(),
		registry: registry,
	}
}

// NewGridWithSun создаёт пустой мир с заданным направлением солнца
func NewGridWithSun(size int, registry *block.Registry, sun vec.Vec3Float) (*Grid, error) {
	g := NewGrid(size, registry)
	if err := g.SetSun(sun); err != nil {
		return nil, err
	}
	return g, nil
}

// Size возвращает длину ребра мира
func (g *Grid) Size() int { return g.size }

// Len возвращает количество вокселей (size^3)
func (g *Grid) Len() int { return len(g.voxels) }

// Registry возвращает регистр блоков, которым пользуется мир
func (g *Grid) Registry() *block.Registry { return g.registry }

// Sun возвращает единичный вектор направления на солнце
func (g *Grid) Sun() vec.Vec3Float { return g.sun }

// SetSun нормализует и сохраняет направление на солнце
func (g *Grid) SetSun(sun vec.Vec3Float) error {
	if sun.Length() == 0 {
		return errors.New("направление на солнце не может быть нулевым")
	}
	g.sun = sun.Normalize()
	return nil
}

// Contains проверяет, что все координаты лежат в [0, size)
func (g *Grid) Contains(pos vec.Vec3) bool {
	return pos.X > -1 && pos.X < g.size &&
		pos.Y > -1 && pos.Y < g.size &&
		pos.Z > -1 && pos.Z < g.size
}

func (g *Grid) index(pos vec.Vec3) int {
	return pos.Z*g.layer + pos.Y*g.size + pos.X
}

// SetUnsafe записывает блок без проверки границ.
// Вызывающий обязан гарантировать, что позиция внутри мира;
// проверка выполняется только в сборке с тегом voxeldebug.
func (g *Grid) SetUnsafe(pos vec.Vec3, id block.BlockID) {
	assertInBounds(g, pos)
	g.voxels[g.index(pos)] = byte(id)
}

// GetUnsafe читает блок без проверки границ (контракт как у SetUnsafe)
func (g *Grid) GetUnsafe(pos vec.Vec3) block.BlockID {
	assertInBounds(g, pos)
	return block.BlockID(g.voxels[g.index(pos)])
}

// Set устанавливает блок с проверкой границ.
// Возвращает false, если позиция вне мира; мир при этом не меняется.
func (g *Grid) Set(pos vec.Vec3, id block.BlockID) bool {
	if !g.Contains(pos) {
		return false
	}
	g.voxels[g.index(pos)] = byte(id)
	return true
}

// SetByName устанавливает блок по имени из регистра.
// Возвращает false для неизвестного имени или позиции вне мира.
func (g *Grid) SetByName(pos vec.Vec3, name string) bool {
	if g.registry == nil {
		return false
	}
	id, ok := g.registry.Lookup(name)
	if !ok {
		return false
	}
	return g.Set(pos, id)
}

// Get возвращает ID блока или OutOfRange, если позиция вне мира
func (g *Grid) Get(pos vec.Vec3) int {
	if !g.Contains(pos) {
		return OutOfRange
	}
	return int(g.voxels[g.index(pos)])
}

// Voxels возвращает сырой буфер мира для передачи рендереру.
// Буфер разделяет память с миром: любая запись в мир делает
// ранее выгруженную копию устаревшей.
func (g *Grid) Voxels() []byte {
	return g.voxels
}

// Count возвращает количество вокселей с указанным ID
func (g *Grid) Count(id block.BlockID) int {
	n := 0
	for _, v := range g.voxels {
		if v == byte(id) {
			n++
		}
	}
	return n
}

// Histogram возвращает количество вокселей по каждому ID
func (g *Grid) Histogram() map[block.BlockID]int {
	hist := make(map[block.BlockID]int)
	for _, v := range g.voxels {
		hist[block.BlockID(v)]++
	}
	return hist
}

// Clone создаёт независимую копию мира
func (g *Grid) Clone() *Grid {
	voxels := make([]byte, len(g.voxels))
	copy(voxels, g.voxels)
	return &Grid{
		size:     g.size,
		layer:    g.layer,
		voxels:   voxels,
		sun:      g.sun,
		registry: g.registry,
	}
}
