//go:build voxeldebug

package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

// assertInBounds в отладочной сборке ловит нарушение контракта *Unsafe-методов
func assertInBounds(g *Grid, pos vec.Vec3) {
	if !g.Contains(pos) {
		panic(fmt.Sprintf("voxel position %+v outside world of size %d", pos, g.size))
	}
}
