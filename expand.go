package tagreports

// ExpansionPlan описывает размножение пары строк заголовок/данные.
// Roles — роли всех строк блока начиная со строки заголовка:
// [header, data×s1, header, data×s2, ...]. Первые две роли занимают строки шаблона.
type ExpansionPlan struct {
	HeaderRow int
	DataRow   int
	Roles     []Role
}

// NewExpansionPlan строит план по сгруппированным данным.
func NewExpansionPlan(headerRow, dataRow int, groups []Group) ExpansionPlan {
	return ExpansionPlan{HeaderRow: headerRow, DataRow: dataRow, Roles: layout(groups)}
}

// InsertAt — первая вставляемая строка (сразу под строкой данных шаблона).
func (p ExpansionPlan) InsertAt() int { return p.DataRow + 1 }

// Count — число вставляемых строк.
func (p ExpansionPlan) Count() int {
	if len(p.Roles) < 2 {
		return 0
	}
	return len(p.Roles) - 2
}

// RowOf возвращает итоговый номер строки блока с индексом i.
func (p ExpansionPlan) RowOf(i int) int { return p.HeaderRow + i }

// Expand — чистая функция: возвращает новую арену, src не меняется.
//  1. ячейки ниже точки вставки сдвигаются на Count строк;
//  2. ссылки формул на строки >= точки вставки сдвигаются на Count;
//  3. объединения ниже точки вставки сдвигаются, пересекающие её — растягиваются;
//  4. новые строки копируются из строки шаблона своей роли: стиль, статический текст,
//     формулы со сдвигом относительных ссылок, однострочные объединения, высота.
func Expand(src *Sheet, p ExpansionPlan) *Sheet {
	n := p.Count()
	if n == 0 {
		return src.Clone()
	}
	ins := p.InsertAt()
	dst := NewSheet(src.Name)

	for ref, c := range src.cells {
		if ref.Row >= ins {
			ref.Row += n
		}
		c.Formula = ShiftFormula(c.Formula, src.Name, ins, n)
		dst.cells[ref] = c
	}
	for row, h := range src.heights {
		if row >= ins {
			row += n
		}
		dst.heights[row] = h
	}
	for _, m := range src.merges {
		switch {
		case m.MinRow >= ins:
			m.MinRow += n
			m.MaxRow += n
		case m.MaxRow >= ins:
			m.MaxRow += n
		}
		dst.merges = append(dst.merges, m)
	}

	tplRow := map[Role]int{RoleHeader: p.HeaderRow, RoleData: p.DataRow}
	tplCells := map[Role][]CellRef{
		RoleHeader: dst.RowRefs(p.HeaderRow),
		RoleData:   dst.RowRefs(p.DataRow),
	}
	tplMerges := map[Role][]Range{}
	for _, m := range src.merges {
		if m.MinRow != m.MaxRow {
			continue
		}
		for role, row := range tplRow {
			if m.MinRow == row {
				tplMerges[role] = append(tplMerges[role], m)
			}
		}
	}

	for i, role := range p.Roles[2:] {
		row := ins + i
		from := tplRow[role]
		for _, ref := range tplCells[role] {
			c := dst.cells[ref]
			c.Formula = OffsetFormula(c.Formula, src.Name, row-from)
			dst.cells[CellRef{Row: row, Col: ref.Col}] = c
		}
		if h, ok := dst.heights[from]; ok {
			dst.heights[row] = h
		}
		for _, m := range tplMerges[role] {
			m.MinRow, m.MaxRow = row, row
			dst.merges = append(dst.merges, m)
		}
	}
	return dst
}
