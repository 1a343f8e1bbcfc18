package tagreports

import (
	"fmt"
	"os"
	"strings"

	"github.com/thedatashed/xlsxreader"
	"github.com/xuri/excelize/v2"
)

// TemplateTag — плейсхолдер, найденный при просмотре шаблона.
type TemplateTag struct {
	Cell  string `json:"cell"`
	Tag   string `json:"tag"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// TemplateInfo — сводка по шаблону без загрузки стилей.
type TemplateInfo struct {
	Sheet string        `json:"sheet"`
	Rows  int           `json:"rows"` // последняя непустая строка
	Tags  []TemplateTag `json:"tags"`
}

// InspectTemplate потоково читает первый лист и перечисляет плейсхолдеры.
// Теги не сверяются со списком; это делает Validate.
func InspectTemplate(path string, s TagSettings) (*TemplateInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, path, err)
	}
	xl, err := xlsxreader.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("открытие шаблона %s: %w", path, err)
	}
	defer xl.Close()

	if len(xl.Sheets) == 0 {
		return nil, fmt.Errorf("%w: в книге нет листов", ErrTemplateNotFound)
	}
	s = s.withDefaults()
	rx := placeholderPattern(s)
	info := &TemplateInfo{Sheet: xl.Sheets[0], Tags: []TemplateTag{}}

	for row := range xl.ReadRows(info.Sheet) {
		if row.Error != nil {
			return nil, fmt.Errorf("чтение строки %d: %w", info.Rows+1, row.Error)
		}
		if row.Index > info.Rows {
			info.Rows = row.Index
		}
		for _, cell := range row.Cells {
			if !strings.Contains(cell.Value, s.StartSymbol) {
				continue
			}
			col, err := excelize.ColumnNameToNumber(cell.Column)
			if err != nil {
				return nil, fmt.Errorf("ячейка %s%d: %w", cell.Column, cell.Row, err)
			}
			ref := CellRef{Row: cell.Row, Col: col}
			for _, o := range scanWith(rx, ref, cell.Value, s) {
				info.Tags = append(info.Tags, TemplateTag{
					Cell:  ref.Name(),
					Tag:   o.TagName,
					Role:  o.Role.String(),
					Token: o.Token,
				})
			}
		}
	}
	return info, nil
}
