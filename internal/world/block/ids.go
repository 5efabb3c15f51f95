package block

// BlockID представляет идентификатор блока.
// Значение 0 зарезервировано под пустоту (воздух).
type BlockID uint8

// Константы ID встроенных блоков.
// Рендерер сопоставляет ID с координатами в атласе текстур,
// поэтому значения нельзя менять между версиями.
const (
	AirBlockID        BlockID = iota // 0
	DebugBlockID                     // 1 - грунт плоского мира и случайное заполнение
	GrassBlockID                     // 2
	DirtBlockID                      // 3
	OakLogsBlockID                   // 4
	OakLeavesBlockID                 // 5
	DebugAlphaBlockID                // 6 - полупрозрачные маркеры
)

// Имена встроенных блоков
const (
	AirName        = "air"
	DebugName      = "debug_block"
	GrassName      = "grass_block"
	DirtName       = "dirt_block"
	OakLogsName    = "oak_logs"
	OakLeavesName  = "oak_leaves"
	DebugAlphaName = "debug_alpha"
)

// builtinBlocks описывает порядок регистрации встроенных блоков
var builtinBlocks = []Definition{
	{Name: AirName, ID: AirBlockID},
	{Name: DebugName, ID: DebugBlockID},
	{Name: GrassName, ID: GrassBlockID},
	{Name: DirtName, ID: DirtBlockID},
	{Name: OakLogsName, ID: OakLogsBlockID},
	{Name: OakLeavesName, ID: OakLeavesBlockID},
	{Name: DebugAlphaName, ID: DebugAlphaBlockID},
}
