package tagreports

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// sanitizeJSONBlock извлекает JSON, обёрнутый в тройные кавычки ``` ... ```.
// Если таких кавычек нет, либо структура неверная, возвращает исходную строку.
var fenceRx = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

func sanitizeJSONBlock(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	m := fenceRx.FindStringSubmatch(s)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// valToCell нормализует значение перед записью в Excel.
// Числа, bool и time.Time остаются как есть, чтобы ячейка сохранила тип.
func valToCell(v any) any {
	if v == nil {
		return ""
	}
	switch vv := v.(type) {
	case string, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return vv
	case fmt.Stringer:
		return vv.String()
	case []string:
		return strings.Join(vv, ", ")
	case []any:
		allStr := true
		strs := make([]string, len(vv))
		for i, it := range vv {
			if s, ok := it.(string); ok {
				strs[i] = s
			} else {
				allStr = false
				break
			}
		}
		if allStr {
			return strings.Join(strs, ", ")
		}
		b, _ := json.Marshal(vv)
		return string(b)
	case map[string]any:
		b, _ := json.Marshal(vv)
		return string(b)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

func toString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		// целые в пределах точности float64 печатаются без дробной части
		if math.Abs(vv) < 1<<53 && vv == math.Trunc(vv) {
			return fmt.Sprintf("%d", int64(vv))
		}
		return fmt.Sprintf("%v", vv)
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case time.Time:
		return vv.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// substitute подставляет значения вместо плейсхолдеров текста ячейки.
// resolve возвращает ok=false для вхождений, которые нужно оставить как есть.
// Если ячейка целиком состоит из одного плейсхолдера, значение пишется без
// приведения к строке.
func substitute(text string, occs []Occurrence, resolve func(Occurrence) (any, bool, error)) (any, error) {
	if len(occs) == 1 && strings.TrimSpace(text) == occs[0].Token {
		v, ok, err := resolve(occs[0])
		if err != nil {
			return nil, err
		}
		if ok {
			return valToCell(v), nil
		}
		return text, nil
	}
	out := text
	for _, occ := range occs {
		v, ok, err := resolve(occ)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = strings.Replace(out, occ.Token, toString(valToCell(v)), 1)
	}
	return out, nil
}

// -----------------------------
// Кодек книги
// -----------------------------

// OpenTemplate открывает книгу-шаблон.
func OpenTemplate(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("открытие шаблона %s: %w", path, err)
	}
	return f, nil
}

// OpenTemplateReader читает книгу-шаблон из потока (например, из тела HTTP-запроса).
func OpenTemplateReader(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("чтение шаблона из потока: %w", err)
	}
	return f, nil
}

// Target — куда сохраняется готовый отчёт.
type Target interface {
	Save(f *excelize.File) error
}

type fileTarget string

// ToFile сохраняет отчёт в файл, создавая каталог при необходимости.
func ToFile(path string) Target { return fileTarget(path) }

func (p fileTarget) Save(f *excelize.File) error {
	if dir := filepath.Dir(string(p)); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return f.SaveAs(string(p))
}

func (p fileTarget) String() string { return string(p) }

type writerTarget struct{ w io.Writer }

// ToWriter пишет отчёт в поток (например, bytes.Buffer или http.ResponseWriter).
func ToWriter(w io.Writer) Target { return writerTarget{w: w} }

func (t writerTarget) Save(f *excelize.File) error { return f.Write(t.w) }

func (t writerTarget) String() string { return "поток" }
