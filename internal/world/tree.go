package world

import (
	"math/rand"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// GenerateTree ставит дерево основанием в pos.
// Ствол высотой 3..6 блоков; начиная с порога (1..3) на каждом уровне
// ствола появляются листья в четырёх соседних ячейках, на вершине ещё один лист.
// Части дерева за пределами мира молча отбрасываются.
func GenerateTree(grid *Grid, pos vec.Vec3, rng *rand.Rand) {
	height := int(rng.Float64()*4) + 3
	leavesStart := rng.Float64()*2 + 1

	for i := 0; i < height; i++ {
		trunk := vec.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z + i}
		grid.SetByName(trunk, block.OakLogsName)

		if float64(i) >= leavesStart {
			grid.SetByName(vec.Vec3{X: trunk.X, Y: trunk.Y + 1, Z: trunk.Z}, block.OakLeavesName)
			grid.SetByName(vec.Vec3{X: trunk.X, Y: trunk.Y - 1, Z: trunk.Z}, block.OakLeavesName)
			grid.SetByName(vec.Vec3{X: trunk.X + 1, Y: trunk.Y, Z: trunk.Z}, block.OakLeavesName)
			grid.SetByName(vec.Vec3{X: trunk.X - 1, Y: trunk.Y, Z: trunk.Z}, block.OakLeavesName)
		}
	}

	grid.SetByName(vec.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z + height}, block.OakLeavesName)
}
