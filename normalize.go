package tagreports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// LoadRecords разбирает JSON с записями отчёта: массив объектов или один объект.
// JSON, обёрнутый в ```json ... ```, допускается.
// Числа остаются float64, как их отдаёт encoding/json.
func LoadRecords(data []byte) ([]any, error) {
	src := bytes.TrimSpace([]byte(sanitizeJSONBlock(string(data))))
	if len(src) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(src, &v); err != nil {
		return nil, fmt.Errorf("разбор записей: %w", err)
	}
	v = deepNormalize(v)
	switch vv := v.(type) {
	case []any:
		return vv, nil
	case nil:
		return nil, nil
	default:
		return []any{vv}, nil
	}
}

// LoadRecordsFile читает записи из файла
func LoadRecordsFile(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение данных: %w", err)
	}
	records, err := LoadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("📥 Загружено записей: %d (%s)", len(records), path)
	return records, nil
}

// deepNormalize обрезает пробелы по краям строковых значений, сохраняя порядок
// элементов массивов. От этого зависят ключи групп.
func deepNormalize(v any) any {
	switch vv := v.(type) {
	case []any:
		for i := range vv {
			vv[i] = deepNormalize(vv[i])
		}
		return vv
	case map[string]any:
		for k, val := range vv {
			vv[k] = deepNormalize(val)
		}
		return vv
	case string:
		return string(bytes.TrimSpace([]byte(vv)))
	default:
		return vv
	}
}
