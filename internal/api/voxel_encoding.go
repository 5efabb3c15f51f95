package api

import (
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// voxelCache хранит сжатую zstd копию буфера вокселей последней версии мира.
// Каждая версия сжимается не более одного раза.
type voxelCache struct {
	encoder *zstd.Encoder

	mu         sync.Mutex
	version    uint64
	compressed []byte
}

func newVoxelCache() *voxelCache {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		// Без кодировщика буфер отдаётся несжатым
		return &voxelCache{}
	}
	return &voxelCache{encoder: encoder}
}

// Available сообщает, можно ли отдавать zstd
func (vc *voxelCache) Available() bool {
	return vc.encoder != nil
}

// Compressed возвращает сжатый буфер версии version
func (vc *voxelCache) Compressed(data []byte, version uint64) []byte {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	if vc.compressed != nil && vc.version == version {
		return vc.compressed
	}

	vc.compressed = vc.encoder.EncodeAll(data, make([]byte, 0, len(data)/8))
	vc.version = version
	return vc.compressed
}

// Close освобождает ресурсы кодировщика
func (vc *voxelCache) Close() {
	if vc.encoder != nil {
		vc.encoder.Close()
	}
}

// acceptsZstd разбирает Accept-Encoding; zstd;q=0 считается отказом
func acceptsZstd(header string) bool {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(fields[0]), "zstd") {
			continue
		}
		for _, param := range fields[1:] {
			param = strings.ReplaceAll(strings.TrimSpace(param), " ", "")
			if param == "q=0" || param == "q=0.0" || param == "q=0.00" || param == "q=0.000" {
				return false
			}
		}
		return true
	}
	return false
}
