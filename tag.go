package tagreports

import (
	"errors"
	"fmt"
	"strings"
)

// Ключи контекста, которые движок кладёт при вычислении значений.
const (
	ContextObj  = "obj"  // текущая запись (для заголовка и данных)
	ContextRole = "role" // ключевое слово роли: HEADER / DATA
)

// Context — именованные аргументы одного вычисления. Движок всегда создаёт новый
// экземпляр на вызов и не сохраняет его в теге.
type Context map[string]any

// With возвращает новый контекст: значения other перекрывают значения c.
func (c Context) With(other Context) Context {
	out := make(Context, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Obj возвращает текущую запись, если она есть
func (c Context) Obj() any { return c[ContextObj] }

// ValueResolver вычисляет значение тега по контексту.
type ValueResolver interface {
	Resolve(ctx Context) (any, error)
}

// ValueFunc — функция-стратегия, удовлетворяющая ValueResolver.
type ValueFunc func(ctx Context) (any, error)

func (f ValueFunc) Resolve(ctx Context) (any, error) { return f(ctx) }

type sourceKind int

const (
	sourceConstant sourceKind = iota
	sourceComputed
)

// ValueSource — либо константа, либо вычисляемая стратегия.
type ValueSource struct {
	kind     sourceKind
	value    any
	resolver ValueResolver
}

// Constant задаёт постоянное значение тега.
func Constant(v any) ValueSource { return ValueSource{kind: sourceConstant, value: v} }

// Computed задаёт значение, вычисляемое из контекста.
func Computed(r ValueResolver) ValueSource { return ValueSource{kind: sourceComputed, resolver: r} }

// ComputedFunc — сокращение для Computed(ValueFunc(fn)).
func ComputedFunc(fn func(ctx Context) (any, error)) ValueSource { return Computed(ValueFunc(fn)) }

// Formatter постобрабатывает вычисленное значение перед подстановкой.
type Formatter func(v any) any

// Tag — именованное значение, подставляемое вместо плейсхолдера.
// Равенство тегов определяется только именем.
type Tag struct {
	name        string
	description string
	source      ValueSource
	formatter   Formatter
	args        Context
}

// TagOption настраивает тег при создании
type TagOption func(*Tag)

// WithDescription добавляет человекочитаемое описание.
func WithDescription(d string) TagOption { return func(t *Tag) { t.description = d } }

// WithFormatter задаёт собственный форматтер значения.
func WithFormatter(f Formatter) TagOption { return func(t *Tag) { t.formatter = f } }

// WithArgs задаёт фиксированные аргументы тега. При совпадении ключей
// побеждает контекст вызывающего.
func WithArgs(args Context) TagOption {
	return func(t *Tag) { t.args = Context{}.With(args) }
}

// NewTag создаёт тег.
func NewTag(name string, source ValueSource, opts ...TagOption) *Tag {
	t := &Tag{name: name, source: source}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tag) Name() string        { return t.name }
func (t *Tag) Description() string { return t.description }
func (t *Tag) String() string      { return t.name }

// Equal сравнивает теги по имени.
func (t *Tag) Equal(other *Tag) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.name == other.name
}

// Resolve вычисляет значение тега. Паника стратегии превращается в ResolutionError.
func (t *Tag) Resolve(ctx Context) (v any, err error) {
	if t.source.kind == sourceConstant {
		return t.source.value, nil
	}
	if t.source.resolver == nil {
		return nil, &ResolutionError{Tag: t.name, Err: errors.New("не задана стратегия вычисления")}
	}
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = &ResolutionError{Tag: t.name, Err: fmt.Errorf("паника: %v", r)}
		}
	}()
	v, err = t.source.resolver.Resolve(t.args.With(ctx))
	if err != nil {
		return nil, &ResolutionError{Tag: t.name, Err: err}
	}
	return v, nil
}

// Format применяет собственный форматтер, если он задан.
func (t *Tag) Format(v any) any {
	if t.formatter == nil {
		return v
	}
	return t.formatter(v)
}

// Value = Format(Resolve(ctx))
func (t *Tag) Value(ctx Context) (any, error) {
	v, err := t.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return t.Format(v), nil
}

// Placeholder строит текст плейсхолдера: start + [role + split] + name + end.
// Пустая роль означает общий тег.
func (t *Tag) Placeholder(s TagSettings, role string) (string, error) {
	s = s.withDefaults()
	var sb strings.Builder
	sb.WriteString(s.StartSymbol)
	if role != "" {
		if role != s.HeaderTag && role != s.DataTag {
			return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
		}
		sb.WriteString(role)
		sb.WriteString(s.SplitSymbol)
	}
	sb.WriteString(t.name)
	sb.WriteString(s.EndSymbol)
	return sb.String(), nil
}

// wellFormed проверяет структурные требования к тегу.
func (t *Tag) wellFormed(s TagSettings) error {
	if t == nil {
		return fmt.Errorf("%w: nil вместо тега", ErrInvalidTag)
	}
	if strings.TrimSpace(t.name) == "" {
		return fmt.Errorf("%w: пустое имя", ErrInvalidTag)
	}
	for _, sym := range []string{s.StartSymbol, s.EndSymbol, s.SplitSymbol} {
		if strings.Contains(t.name, sym) {
			return fmt.Errorf("%w: имя %q содержит служебный символ %q", ErrInvalidTag, t.name, sym)
		}
	}
	return nil
}

// TagSet — набор тегов с поиском по имени. При повторе имени побеждает последний.
type TagSet struct {
	items  []*Tag
	byName map[string]*Tag
}

// NewTagSet собирает набор. Структурная проверка элементов выполняется в Validate.
func NewTagSet(tags ...*Tag) TagSet {
	ts := TagSet{items: tags, byName: make(map[string]*Tag, len(tags))}
	for _, t := range tags {
		if t != nil {
			ts.byName[t.name] = t
		}
	}
	return ts
}

// Lookup ищет тег по имени (с учётом регистра)
func (ts TagSet) Lookup(name string) (*Tag, bool) {
	t, ok := ts.byName[name]
	return t, ok
}

// Len — число различных имён.
func (ts TagSet) Len() int { return len(ts.byName) }

func (ts TagSet) check(s TagSettings) error {
	for _, t := range ts.items {
		if err := t.wellFormed(s); err != nil {
			return err
		}
	}
	return nil
}
