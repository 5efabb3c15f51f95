package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Компоненты приложения, у каждого свой логгер и свой файл
const (
	ComponentWorldGen = "worldgen"
	ComponentStorage  = "storage"
	ComponentAPI      = "api"
)

// LoggerManager выдаёт логгеры компонентов и держит общий уровень консоли
type LoggerManager struct {
	mu           sync.Mutex
	loggers      map[string]*Logger
	consoleLevel LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:      make(map[string]*Logger),
		consoleLevel: INFO,
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом запросе.
// Новый логгер получает текущий уровень консоли менеджера.
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер %s: %w", component, err)
	}
	logger.SetLevels(lm.consoleLevel, TRACE)

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный логгер, если файл открыть не удалось
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		fallback := newConsoleLogger(component)
		fallback.Warn("Логи пишутся только в консоль: %v", err)
		return fallback
	}
	return logger
}

// SetConsoleLevel меняет уровень консоли у всех уже созданных и будущих логгеров
func (lm *LoggerManager) SetConsoleLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.consoleLevel = level
	for _, logger := range lm.loggers {
		logger.minConsoleLevel = level
	}
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("не удалось закрыть логгер %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// ListComponents возвращает отсортированный список компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLevel задаёт уровень консоли глобальному логгеру и всем логгерам компонентов
func SetLevel(level LogLevel) {
	SetDefaultLevel(level)
	GetLoggerManager().SetConsoleLevel(level)
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldGenLogger() *Logger { return GetComponentLogger(ComponentWorldGen) }

func GetStorageLogger() *Logger { return GetComponentLogger(ComponentStorage) }

func GetAPILogger() *Logger { return GetComponentLogger(ComponentAPI) }
