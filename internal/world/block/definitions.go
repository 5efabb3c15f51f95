package block

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// definitionsFile - формат YAML-файла с дополнительными блоками:
//
//	blocks:
//	  - name: stone_block
//	    id: 7
type definitionsFile struct {
	Blocks []Definition `yaml:"blocks"`
}

// LoadDefinitions дописывает в регистр блоки из YAML-файла.
// Любой повтор имени прерывает загрузку с ошибкой.
func (r *Registry) LoadDefinitions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения описаний блоков %s: %w", path, err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("ошибка разбора описаний блоков %s: %w", path, err)
	}

	for _, def := range file.Blocks {
		if err := r.Register(def.Name, def.ID); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
