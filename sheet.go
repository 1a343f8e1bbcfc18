package tagreports

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// -----------------------------
// Модель листа в памяти
// -----------------------------

// CellRef — координаты ячейки, 1-based.
type CellRef struct {
	Row int
	Col int
}

// Name возвращает адрес ячейки в A1-нотации
func (c CellRef) Name() string {
	n, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", c.Row, c.Col)
	}
	return n
}

func (c CellRef) String() string { return c.Name() }

// Cell хранит содержимое ячейки: значение, формулу (без "=") и id стиля.
type Cell struct {
	Value   any
	Formula string
	Style   int
}

func (c Cell) empty() bool {
	return (c.Value == nil || c.Value == "") && c.Formula == "" && c.Style == 0
}

// Text — строковое значение ячейки (пусто для не-строк)
func (c Cell) Text() string {
	s, _ := c.Value.(string)
	return s
}

// Range — прямоугольная объединённая область.
type Range struct {
	MinRow, MinCol int
	MaxRow, MaxCol int
}

func (r Range) cells() (string, string) {
	a, _ := excelize.CoordinatesToCellName(r.MinCol, r.MinRow)
	b, _ := excelize.CoordinatesToCellName(r.MaxCol, r.MaxRow)
	return a, b
}

func (r Range) String() string {
	a, b := r.cells()
	return a + ":" + b
}

// Sheet — арена ячеек листа, адресуемых по (row, col).
type Sheet struct {
	Name    string
	cells   map[CellRef]Cell
	merges  []Range
	heights map[int]float64
}

// NewSheet создаёт пустую арену
func NewSheet(name string) *Sheet {
	return &Sheet{Name: name, cells: map[CellRef]Cell{}, heights: map[int]float64{}}
}

// Get возвращает ячейку (нулевую, если её нет).
func (s *Sheet) Get(ref CellRef) Cell { return s.cells[ref] }

// Set записывает ячейку; пустая ячейка удаляется из арены.
func (s *Sheet) Set(ref CellRef, c Cell) {
	if c.empty() {
		delete(s.cells, ref)
		return
	}
	s.cells[ref] = c
}

// SetValue меняет значение, сохраняя стиль. Формула сбрасывается.
func (s *Sheet) SetValue(ref CellRef, v any) {
	c := s.cells[ref]
	c.Value = v
	c.Formula = ""
	s.Set(ref, c)
}

// Refs возвращает все заполненные ячейки в порядке строк, затем колонок.
func (s *Sheet) Refs() []CellRef {
	refs := make([]CellRef, 0, len(s.cells))
	for r := range s.cells {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Row != refs[j].Row {
			return refs[i].Row < refs[j].Row
		}
		return refs[i].Col < refs[j].Col
	})
	return refs
}

// RowRefs возвращает заполненные ячейки строки слева направо
func (s *Sheet) RowRefs(row int) []CellRef {
	var refs []CellRef
	for r := range s.cells {
		if r.Row == row {
			refs = append(refs, r)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Col < refs[j].Col })
	return refs
}

// MaxRow — последняя строка, в которой есть ячейка или объединение.
func (s *Sheet) MaxRow() int {
	m := 0
	for r := range s.cells {
		if r.Row > m {
			m = r.Row
		}
	}
	for _, mg := range s.merges {
		if mg.MaxRow > m {
			m = mg.MaxRow
		}
	}
	return m
}

// Merges возвращает копию списка объединений
func (s *Sheet) Merges() []Range {
	out := make([]Range, len(s.merges))
	copy(out, s.merges)
	return out
}

// AddMerge добавляет объединённую область.
func (s *Sheet) AddMerge(r Range) { s.merges = append(s.merges, r) }

// RowHeight возвращает высоту строки и признак её наличия.
func (s *Sheet) RowHeight(row int) (float64, bool) {
	h, ok := s.heights[row]
	return h, ok
}

// SetRowHeight задаёт высоту строки
func (s *Sheet) SetRowHeight(row int, h float64) { s.heights[row] = h }

// Clone делает глубокую копию арены.
func (s *Sheet) Clone() *Sheet {
	out := &Sheet{
		Name:    s.Name,
		cells:   make(map[CellRef]Cell, len(s.cells)),
		merges:  s.Merges(),
		heights: make(map[int]float64, len(s.heights)),
	}
	for k, v := range s.cells {
		out.cells[k] = v
	}
	for k, v := range s.heights {
		out.heights[k] = v
	}
	return out
}

// -----------------------------
// Чтение и запись через excelize
// -----------------------------

// LoadSheet читает лист книги в арену.
func LoadSheet(f *excelize.File, sheet string) (*Sheet, error) {
	maxRow, maxCol, err := usedRange(f, sheet)
	if err != nil {
		return nil, err
	}
	s := NewSheet(sheet)
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("чтение объединений листа %s: %w", sheet, err)
	}
	for _, m := range merges {
		sc, sr, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			return nil, err
		}
		ec, er, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			return nil, err
		}
		s.merges = append(s.merges, Range{MinRow: sr, MinCol: sc, MaxRow: er, MaxCol: ec})
		if er > maxRow {
			maxRow = er
		}
		if ec > maxCol {
			maxCol = ec
		}
	}

	for row := 1; row <= maxRow; row++ {
		if h, err := f.GetRowHeight(sheet, row); err == nil {
			s.heights[row] = h
		}
		for col := 1; col <= maxCol; col++ {
			ref := CellRef{Row: row, Col: col}
			c, err := readCell(f, sheet, ref.Name())
			if err != nil {
				return nil, fmt.Errorf("ячейка %s: %w", ref, err)
			}
			s.Set(ref, c)
		}
	}
	return s, nil
}

// usedRange — границы листа по XML: GetRows отбрасывает хвостовые ячейки без
// значения, а Cols и Rows учитывают и те, у которых есть только стиль.
func usedRange(f *excelize.File, sheet string) (maxRow, maxCol int, err error) {
	cols, err := f.Cols(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("обход колонок листа %s: %w", sheet, err)
	}
	for cols.Next() {
		maxCol++
	}
	if err := cols.Error(); err != nil {
		return 0, 0, fmt.Errorf("обход колонок листа %s: %w", sheet, err)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("обход строк листа %s: %w", sheet, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		maxRow++
	}
	if err := rows.Error(); err != nil {
		return 0, 0, fmt.Errorf("обход строк листа %s: %w", sheet, err)
	}
	return maxRow, maxCol, nil
}

func readCell(f *excelize.File, sheet, addr string) (Cell, error) {
	var c Cell
	sid, err := f.GetCellStyle(sheet, addr)
	if err != nil {
		return c, err
	}
	c.Style = sid
	formula, err := f.GetCellFormula(sheet, addr)
	if err != nil {
		return c, err
	}
	c.Formula = formula
	if formula != "" {
		return c, nil
	}
	raw, err := f.GetCellValue(sheet, addr, excelize.Options{RawCellValue: true})
	if err != nil {
		return c, err
	}
	if raw == "" {
		return c, nil
	}
	typ, err := f.GetCellType(sheet, addr)
	if err != nil {
		return c, err
	}
	c.Value = typedValue(typ, raw)
	return c, nil
}

// typedValue восстанавливает тип сырого значения, чтобы числа не превращались в текст.
func typedValue(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || raw == "true" || raw == "TRUE"
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	default:
		return raw
	}
}

// StoreSheet переносит арену after в лист книги. before — состояние, из
// которого лист был прочитан (нужно, чтобы очистить исчезнувшие ячейки и объединения).
func StoreSheet(f *excelize.File, before, after *Sheet) error {
	sheet := after.Name
	for _, m := range before.merges {
		a, b := m.cells()
		if err := f.UnmergeCell(sheet, a, b); err != nil {
			return fmt.Errorf("снятие объединения %s: %w", m, err)
		}
	}
	for _, ref := range before.Refs() {
		old := before.cells[ref]
		if _, ok := after.cells[ref]; ok && old.Formula == "" {
			continue
		}
		addr := ref.Name()
		if old.Formula != "" {
			if err := f.SetCellFormula(sheet, addr, ""); err != nil {
				return err
			}
		}
		if _, ok := after.cells[ref]; ok {
			continue
		}
		if err := f.SetCellValue(sheet, addr, nil); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, addr, addr, 0); err != nil {
			return err
		}
	}
	for _, ref := range after.Refs() {
		c := after.cells[ref]
		addr := ref.Name()
		if err := f.SetCellStyle(sheet, addr, addr, c.Style); err != nil {
			return fmt.Errorf("стиль %s: %w", addr, err)
		}
		if c.Formula != "" {
			if err := f.SetCellFormula(sheet, addr, c.Formula); err != nil {
				return fmt.Errorf("формула %s: %w", addr, err)
			}
			continue
		}
		if err := f.SetCellValue(sheet, addr, c.Value); err != nil {
			return fmt.Errorf("значение %s: %w", addr, err)
		}
	}
	for _, m := range after.merges {
		a, b := m.cells()
		if err := f.MergeCell(sheet, a, b); err != nil {
			return fmt.Errorf("объединение %s: %w", m, err)
		}
	}
	rows := make([]int, 0, len(after.heights))
	for r := range after.heights {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	for _, r := range rows {
		if err := f.SetRowHeight(sheet, r, after.heights[r]); err != nil {
			return fmt.Errorf("высота строки %d: %w", r, err)
		}
	}
	return nil
}
