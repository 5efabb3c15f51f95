package block

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateName возвращается при повторной регистрации имени блока
var ErrDuplicateName = errors.New("duplicate block name")

// Definition описывает соответствие имени блока и его ID
type Definition struct {
	Name string  `json:"name" yaml:"name"`
	ID   BlockID `json:"id" yaml:"id"`
}

// Registry хранит таблицу имя -> ID и обратную таблицу ID -> имя.
// Таблица только дополняется; после старта приложения она используется
// только на чтение и может разделяться между горутинами.
type Registry struct {
	byName map[string]BlockID
	byID   map[BlockID]string
}

// NewRegistry создаёт пустой регистр
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]BlockID),
		byID:   make(map[BlockID]string),
	}
}

// NewDefaultRegistry создаёт регистр со встроенными блоками
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, def := range builtinBlocks {
		if err := r.Register(def.Name, def.ID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register добавляет соответствие имени и ID.
// Повтор имени - ошибка конфигурации, она не исправляется автоматически.
func (r *Registry) Register(name string, id BlockID) error {
	if name == "" {
		return fmt.Errorf("пустое имя блока для ID %d", id)
	}
	if existing, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %q уже зарегистрирован с ID %d", ErrDuplicateName, name, existing)
	}

	r.byName[name] = id
	// Обратная таблица помнит первое имя, выданное ID
	if _, exists := r.byID[id]; !exists {
		r.byID[id] = name
	}
	return nil
}

// Lookup возвращает ID блока по имени.
// Второй результат false означает, что имя не зарегистрировано.
func (r *Registry) Lookup(name string) (BlockID, bool) {
	id, exists := r.byName[name]
	return id, exists
}

// Name возвращает имя блока по ID
func (r *Registry) Name(id BlockID) (string, bool) {
	name, exists := r.byID[id]
	return name, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func (r *Registry) IsValidBlockID(id BlockID) bool {
	_, exists := r.byID[id]
	return exists
}

// Len возвращает количество зарегистрированных имён
func (r *Registry) Len() int {
	return len(r.byName)
}

// Definitions возвращает все имена, отсортированные по ID, затем по имени
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.byName))
	for name, id := range r.byName {
		defs = append(defs, Definition{Name: name, ID: id})
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].ID != defs[j].ID {
			return defs[i].ID < defs[j].ID
		}
		return defs[i].Name < defs[j].Name
	})
	return defs
}
