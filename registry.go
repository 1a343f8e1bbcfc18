package tagreports

import (
	"fmt"
	"sort"
	"sync"
)

// RendererFactory создаёт реализацию ReportRenderer для шаблона.
type RendererFactory func(cfg *Config, tags []*Tag, template string, opts ...Option) (ReportRenderer, error)

var (
	registryMu   sync.RWMutex
	renderers    = map[string]RendererFactory{}
	dataManagers = map[string]DataManager{}
)

func init() {
	RegisterRenderer("default", func(cfg *Config, tags []*Tag, template string, opts ...Option) (ReportRenderer, error) {
		return NewReportGenerator(tags, template, append(cfg.Options(), opts...)...)
	})
	RegisterDataManager("default", DefaultDataManager{})
}

// RegisterRenderer регистрирует генератор под именем для generator_class.
// Повторная регистрация имени заменяет прежнюю.
func RegisterRenderer(name string, f RendererFactory) {
	if f == nil {
		panic("tagreports: RegisterRenderer с nil фабрикой")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	renderers[name] = f
}

// RegisterDataManager регистрирует DataManager под именем для data_manager_class.
func RegisterDataManager(name string, dm DataManager) {
	if dm == nil {
		panic("tagreports: RegisterDataManager с nil")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	dataManagers[name] = dm
}

// LookupDataManager возвращает зарегистрированный DataManager.
func LookupDataManager(name string) (DataManager, error) {
	if name == "" {
		name = "default"
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	dm, ok := dataManagers[name]
	if !ok {
		return nil, fmt.Errorf("%w: data_manager_class %q", ErrPluginNotFound, name)
	}
	return dm, nil
}

// NewRenderer создаёт генератор, выбранный в cfg.GeneratorClass.
func NewRenderer(cfg *Config, tags []*Tag, template string, opts ...Option) (ReportRenderer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	name := cfg.GeneratorClass
	if name == "" {
		name = "default"
	}
	registryMu.RLock()
	f, ok := renderers[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: generator_class %q", ErrPluginNotFound, name)
	}
	return f(cfg, tags, template, opts...)
}

// Renderers перечисляет зарегистрированные имена генераторов.
func Renderers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
