package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/gin-gonic/gin"
)

// WorldInfo описывает мир для клиентов
type WorldInfo struct {
	Size    int            `json:"size"`
	Sun     vec.Vec3Float  `json:"sun"`
	Version uint64         `json:"version"`
	Dirty   bool           `json:"dirty"`
	Blocks  map[string]int `json:"blocks"` // число вокселей по имени блока
}

// BlockResponse - содержимое одной ячейки
type BlockResponse struct {
	Position vec.Vec3      `json:"position"`
	InWorld  bool          `json:"in_world"`
	ID       block.BlockID `json:"id"`
	Name     string        `json:"name,omitempty"`
}

// SetBlockRequest - запрос на запись блока по ID или по имени
type SetBlockRequest struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// RaycastRequest - запрос трассировки луча
type RaycastRequest struct {
	Origin      vec.Vec3Float `json:"origin"`
	Direction   vec.Vec3Float `json:"direction"`
	MaxSteps    int           `json:"max_steps"`
	MaxDistance float64       `json:"max_distance"`
}

// handleWorldInfo возвращает размер, солнце, версию и состав мира
func (rs *RestServer) handleWorldInfo(c *gin.Context) {
	var info WorldInfo
	rs.world.View(func(g *world.Grid) {
		info.Size = g.Size()
		info.Sun = g.Sun()
		info.Blocks = rs.namedHistogram(g.Histogram())
	})
	info.Version = rs.world.Version()
	info.Dirty = rs.world.Dirty()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Описание мира",
		Data:    info,
	})
}

// handleVoxels отдаёт сырой буфер вокселей в порядке z, y, x
func (rs *RestServer) handleVoxels(c *gin.Context) {
	data, version := rs.world.Snapshot()
	etag := `"` + rs.world.Epoch() + "-" + strconv.FormatUint(version, 10) + `"`

	c.Header("X-World-Version", strconv.FormatUint(version, 10))
	c.Header("X-World-Size", strconv.Itoa(rs.world.Size()))
	c.Header("ETag", etag)
	c.Header("Vary", "Accept-Encoding")

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	if rs.voxels.Available() && acceptsZstd(c.GetHeader("Accept-Encoding")) {
		c.Header("Content-Encoding", "zstd")
		c.Data(http.StatusOK, "application/octet-stream", rs.voxels.Compressed(data, version))
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", data)
}

// handleBlockDefinitions возвращает регистр блоков
func (rs *RestServer) handleBlockDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Регистр блоков",
		Data:    rs.registry.Definitions(),
	})
}

// handleGetBlock возвращает блок в ячейке
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, ok := parsePosition(c)
	if !ok {
		return
	}

	id := rs.world.GetBlock(pos)
	if id == world.OutOfRange {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Позиция вне мира",
			Data:    BlockResponse{Position: pos, InWorld: false},
		})
		return
	}

	resp := BlockResponse{Position: pos, InWorld: true, ID: block.BlockID(id)}
	resp.Name, _ = rs.registry.Name(resp.ID)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок получен",
		Data:    resp,
	})
}

// handleSetBlock записывает блок по ID или имени
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	pos, ok := parsePosition(c)
	if !ok {
		return
	}

	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.ID == nil && req.Name == "") {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Нужно указать id или name блока",
		})
		return
	}

	var success bool
	switch {
	case req.Name != "":
		success = rs.world.SetBlockByName(pos, req.Name)
	case *req.ID < 0 || *req.ID > 255 || !rs.registry.IsValidBlockID(block.BlockID(*req.ID)):
		success = false
	default:
		success = rs.world.SetBlock(pos, block.BlockID(*req.ID))
	}

	if !success {
		c.JSON(http.StatusUnprocessableEntity, GenericResponse{
			Success: false,
			Message: "Блок не записан: позиция вне мира или неизвестный блок",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок записан",
		Data:    gin.H{"version": rs.world.Version()},
	})
}

// handleRaycast трассирует луч и возвращает первое попадание
func (rs *RestServer) handleRaycast(c *gin.Context) {
	var req RaycastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}
	if req.Direction.Length() == 0 {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Направление луча не может быть нулевым",
		})
		return
	}

	result := rs.world.Raycast(req.Origin, req.Direction, world.CastOptions{
		MaxSteps:    req.MaxSteps,
		MaxDistance: req.MaxDistance,
	})

	message := "Луч ни во что не попал"
	if result.Hit {
		message = "Попадание"
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: message,
		Data:    result,
	})
}

// handleGenerate регенерирует мир; незаданные поля берутся из конфигурации
func (rs *RestServer) handleGenerate(c *gin.Context) {
	params := rs.defaultParams
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверный формат запроса",
			})
			return
		}
	}

	if err := rs.world.Regenerate(c.Request.Context(), params); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, world.ErrUnknownMode) {
			status = http.StatusBadRequest
		}
		rs.logger.Warn("Регенерация мира не удалась: %v", err)
		c.JSON(status, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	if rs.debugMarkers {
		rs.world.PlaceDebugMarkers()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сгенерирован",
		Data:    gin.H{"version": rs.world.Version(), "mode": params.Mode},
	})
}

// handleSave сохраняет мир в настроенное хранилище
func (rs *RestServer) handleSave(c *gin.Context) {
	if rs.store == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Хранилище не настроено",
		})
		return
	}

	if err := rs.world.Save(rs.store.Save); err != nil {
		rs.logger.Error("❌ Ошибка сохранения мира: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка сохранения мира",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сохранён",
		Data:    gin.H{"location": rs.store.Location(), "version": rs.world.Version()},
	})
}

// handleStats возвращает статистику сервера и мира
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"server": rs.metrics.Collect(),
		"world": gin.H{
			"size":    rs.world.Size(),
			"version": rs.world.Version(),
			"dirty":   rs.world.Dirty(),
		},
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

func (rs *RestServer) namedHistogram(hist map[block.BlockID]int) map[string]int {
	named := make(map[string]int, len(hist))
	for id, n := range hist {
		name, ok := rs.registry.Name(id)
		if !ok {
			name = "unknown:" + strconv.Itoa(int(id))
		}
		named[name] = n
	}
	return named
}

// parsePosition читает :x/:y/:z; при ошибке сам отвечает 400
func parsePosition(c *gin.Context) (vec.Vec3, bool) {
	var coords [3]int
	for i, key := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Param(key))
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Координата " + key + " должна быть целым числом",
			})
			return vec.Vec3{}, false
		}
		coords[i] = v
	}
	return vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, true
}
