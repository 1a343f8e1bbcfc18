package tagreports

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Config — настройки процесса. Загружается один раз при старте и передаётся
// в конструкторы явно.
type Config struct {
	Placeholder        TagSettings `yaml:"placeholder"`
	TemplatesDirectory string      `yaml:"templates_directory"`
	ReportsDirectory   string      `yaml:"reports_directory"`
	GeneratorClass     string      `yaml:"generator_class"`
	DataManagerClass   string      `yaml:"data_manager_class"`
	RequiresHeader     bool        `yaml:"requires_header"`
	Tags               []TagSpec   `yaml:"tags"`
}

// TagSpec — тег, объявленный в конфигурации. Должно быть задано ровно одно из
// value / field / expr / func.
type TagSpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Value       any            `yaml:"value"`
	Field       string         `yaml:"field"`
	Expr        string         `yaml:"expr"`
	Func        string         `yaml:"func"`
	Args        map[string]any `yaml:"args"`
	Format      *FormatSpec    `yaml:"format"`
}

// FormatSpec выбирает готовый форматтер: kind number (decimals, language)
// или date (layout, language).
type FormatSpec struct {
	Kind     string `yaml:"kind"`
	Decimals *int   `yaml:"decimals"`
	Layout   string `yaml:"layout"`
	Language string `yaml:"language"`
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Placeholder:        DefaultTagSettings(),
		TemplatesDirectory: "templates",
		ReportsDirectory:   "reports",
		GeneratorClass:     "default",
		DataManagerClass:   "default",
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv заменяет ${VAR} и ${VAR:-default} значениями окружения.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// LoadConfig читает YAML-файл. Пустой путь — настройки по умолчанию.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации: %w", err)
	}
	return ParseConfig(data, getenv)
}

// ParseConfig разбирает YAML поверх значений по умолчанию.
func ParseConfig(data []byte, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(interpolateEnv(data, getenv), cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Placeholder = cfg.Placeholder.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	s := c.Placeholder
	syms := []string{s.StartSymbol, s.EndSymbol, s.SplitSymbol, s.HeaderTag, s.DataTag}
	seen := map[string]bool{}
	for _, sym := range syms {
		if seen[sym] {
			return fmt.Errorf("%w: символ %q используется дважды в placeholder", ErrInvalidConfig, sym)
		}
		seen[sym] = true
	}
	return nil
}

// Options переводит конфигурацию в опции генератора.
func (c *Config) Options() []Option {
	return []Option{
		WithSettings(c.Placeholder),
		WithRequiresHeader(c.RequiresHeader),
		WithTemplatesDir(c.TemplatesDirectory),
		WithReportsDir(c.ReportsDirectory),
	}
}

// BuildTags создаёт теги из секции tags, используя выбранный DataManager.
func (c *Config) BuildTags() ([]*Tag, error) {
	if len(c.Tags) == 0 {
		return nil, nil
	}
	dm, err := LookupDataManager(c.DataManagerClass)
	if err != nil {
		return nil, err
	}
	tags := make([]*Tag, 0, len(c.Tags))
	for _, spec := range c.Tags {
		t, err := spec.Build(dm)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Build создаёт тег по описанию.
func (s TagSpec) Build(dm DataManager) (*Tag, error) {
	set := 0
	if s.Value != nil {
		set++
	}
	if s.Field != "" {
		set++
	}
	if s.Expr != "" {
		set++
	}
	if s.Func != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %s: нужно ровно одно из value/field/expr/func", ErrInvalidTag, s.Name)
	}

	opts := []TagOption{WithDescription(s.Description)}
	if len(s.Args) > 0 {
		opts = append(opts, WithArgs(Context(s.Args)))
	}
	if s.Format != nil {
		f, err := s.Format.formatter()
		if err != nil {
			return nil, fmt.Errorf("тег %s: %w", s.Name, err)
		}
		opts = append(opts, WithFormatter(f))
	}

	var src ValueSource
	switch {
	case s.Value != nil:
		src = Constant(s.Value)
	case s.Field != "":
		if err := checkPath(s.Field); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTag, s.Name, err)
		}
		src = Field(s.Field)
	case s.Expr != "":
		r, err := NewExprResolver(s.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTag, s.Name, err)
		}
		src = Computed(r)
	default:
		if dm == nil {
			return nil, fmt.Errorf("%w: не задан DataManager для %s", ErrPluginNotFound, s.Name)
		}
		fn, err := dm.Lookup(s.Func)
		if err != nil {
			return nil, err
		}
		src = Computed(fn)
	}
	return NewTag(s.Name, src, opts...), nil
}

func (f FormatSpec) formatter() (Formatter, error) {
	switch strings.ToLower(f.Kind) {
	case "number":
		d := -1
		if f.Decimals != nil {
			d = *f.Decimals
		}
		return NumberFormatter(f.Language, d), nil
	case "date":
		layout := f.Layout
		if layout == "" {
			layout = "long"
		}
		return DateFormatter(f.Language, layout), nil
	}
	return nil, fmt.Errorf("%w: неизвестный формат %q", ErrInvalidConfig, f.Kind)
}

// ExprResolver вычисляет значение выражением expr-lang по контексту тега,
// например obj.region или obj.level * 100.
type ExprResolver struct {
	src     string
	program *vm.Program
}

// NewExprResolver компилирует выражение один раз.
func NewExprResolver(src string) (*ExprResolver, error) {
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &ExprResolver{src: src, program: program}, nil
}

// Resolve реализует ValueResolver.
func (r *ExprResolver) Resolve(ctx Context) (any, error) {
	out, err := expr.Run(r.program, map[string]any(ctx))
	if err != nil {
		return nil, fmt.Errorf("выражение %q: %w", r.src, err)
	}
	return out, nil
}
