package tagreports

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldPath — стратегия, достающая значение из ctx["obj"] по пути вида
// "region", "meta.code" или "items[0].name".
// Отсутствующее поле даёт nil, а не ошибку: пустая ячейка в отчёте.
type FieldPath string

// Field создаёт вычисляемый источник по пути в записи.
func Field(path string) ValueSource { return Computed(FieldPath(path)) }

// Resolve реализует ValueResolver.
func (p FieldPath) Resolve(ctx Context) (any, error) {
	path := strings.TrimPrefix(strings.TrimSpace(string(p)), ".")
	if path == "" {
		return ctx.Obj(), nil
	}
	if err := checkPath(path); err != nil {
		return nil, err
	}
	v, _ := drill(ctx.Obj(), path)
	return v, nil
}

// checkPath проверяет, что индексы в пути закрыты и числовые.
func checkPath(path string) error {
	rest := path
	for rest != "" {
		seg, tail := nextSeg(rest)
		if seg == "" {
			return fmt.Errorf("путь %q: пустой сегмент", path)
		}
		if strings.HasPrefix(seg, "[") {
			if !strings.HasSuffix(seg, "]") {
				return fmt.Errorf("путь %q: незакрытый индекс", path)
			}
			if _, err := strconv.Atoi(strings.Trim(seg, "[]")); err != nil {
				return fmt.Errorf("путь %q: индекс %s не число", path, seg)
			}
		}
		rest = tail
	}
	return nil
}

// drill спускается по пути. Поддерживаются map[string]any, map[string]string,
// срезы и структуры (по имени поля или тегу json).
func drill(v any, path string) (any, bool) {
	cur := v
	rest := path
	for rest != "" {
		seg, tail := nextSeg(rest)
		var ok bool
		if strings.HasPrefix(seg, "[") {
			i, err := strconv.Atoi(strings.Trim(seg, "[]"))
			if err != nil {
				return nil, false
			}
			cur, ok = index(cur, i)
		} else {
			cur, ok = member(cur, seg)
		}
		if !ok {
			return nil, false
		}
		rest = tail
	}
	return cur, true
}

func index(v any, i int) (any, bool) {
	if arr, ok := v.([]any); ok {
		if i < 0 || i >= len(arr) {
			return nil, false
		}
		return arr[i], true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if i < 0 || i >= rv.Len() {
		return nil, false
	}
	return rv.Index(i).Interface(), true
}

func member(v any, name string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		nv, ok := m[name]
		return nv, ok
	case map[string]string:
		nv, ok := m[name]
		return nv, ok
	case Context:
		nv, ok := m[name]
		return nv, ok
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		jsonName, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if f.Name == name || jsonName == name {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

func nextSeg(path string) (seg string, tail string) {
	if path == "" {
		return "", ""
	}
	if path[0] == '[' {
		if i := strings.Index(path, "]"); i >= 0 {
			seg = path[:i+1]
			if i+1 < len(path) && path[i+1] == '.' {
				tail = path[i+2:]
			} else {
				tail = path[i+1:]
			}
			return
		}
		return path, ""
	}
	i := 0
	for i < len(path) && path[i] != '.' && path[i] != '[' {
		i++
	}
	seg = path[:i]
	if i < len(path) && path[i] == '.' {
		tail = path[i+1:]
	} else {
		tail = path[i:]
	}
	return
}
