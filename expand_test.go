package tagreports

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupsOf(sizes ...int) []Group {
	var out []Group
	for i, n := range sizes {
		g := Group{Key: string(rune('a' + i))}
		for j := 0; j < n; j++ {
			g.Records = append(g.Records, j)
		}
		out = append(out, g)
	}
	return out
}

func at(row, col int) CellRef { return CellRef{Row: row, Col: col} }

// sampleSheet: заголовок в строке 2, данные в строке 3, итог в строке 4.
func sampleSheet() *Sheet {
	s := NewSheet("Data")
	s.Set(at(1, 1), Cell{Value: "title"})
	s.Set(at(2, 1), Cell{Value: "{{HEADER.REGION}}", Style: 2})
	s.Set(at(3, 1), Cell{Value: "{{DATA.NAME}}", Style: 3})
	s.Set(at(3, 2), Cell{Formula: "A3*2", Style: 3})
	s.Set(at(3, 5), Cell{Formula: "$A$1&A2"})
	s.Set(at(4, 1), Cell{Value: "total"})
	s.Set(at(4, 2), Cell{Formula: "SUM(B3:B3)"})
	s.AddMerge(Range{MinRow: 2, MinCol: 1, MaxRow: 2, MaxCol: 2})
	s.AddMerge(Range{MinRow: 4, MinCol: 1, MaxRow: 4, MaxCol: 2})
	s.AddMerge(Range{MinRow: 3, MinCol: 4, MaxRow: 5, MaxCol: 4})
	s.AddMerge(Range{MinRow: 1, MinCol: 3, MaxRow: 3, MaxCol: 3})
	s.SetRowHeight(3, 30)
	s.SetRowHeight(4, 18)
	return s
}

func TestRowsNeeded(t *testing.T) {
	assert.Equal(t, 7, RowsNeeded(groupsOf(2, 1, 3)))
	assert.Equal(t, 9, RowsNeeded(groupsOf(3, 2, 1, 1)))
	assert.Equal(t, 0, RowsNeeded(groupsOf(1)))
	assert.Equal(t, 0, RowsNeeded(nil))
}

func TestExpansionPlan(t *testing.T) {
	p := NewExpansionPlan(2, 3, groupsOf(2, 1, 3))
	assert.Equal(t, 4, p.InsertAt())
	assert.Equal(t, 7, p.Count())
	assert.Equal(t, []Role{RoleHeader, RoleData, RoleData, RoleHeader, RoleData, RoleHeader, RoleData, RoleData, RoleData}, p.Roles)
	assert.Equal(t, 10, p.RowOf(8))
	assert.Equal(t, 0, NewExpansionPlan(2, 3, nil).Count())
}

func TestExpand(t *testing.T) {
	src := sampleSheet()
	out := Expand(src, NewExpansionPlan(2, 3, groupsOf(2, 1, 3)))
	dump := spew.Sdump(out.Refs())

	// исходная арена не меняется
	assert.Equal(t, "total", src.Get(at(4, 1)).Value)
	assert.Equal(t, 5, src.MaxRow())

	// строки ниже точки вставки сдвигаются на 7
	assert.Equal(t, "total", out.Get(at(11, 1)).Value, dump)
	assert.Equal(t, "SUM(B3:B3)", out.Get(at(11, 2)).Formula, dump)

	// клоны строк данных: стиль и формула со сдвигом относительных ссылок
	for _, row := range []int{4, 6, 8, 9, 10} {
		c := out.Get(at(row, 1))
		assert.Equal(t, "{{DATA.NAME}}", c.Value, "row %d: %s", row, dump)
		assert.Equal(t, 3, c.Style, "row %d", row)
		f := out.Get(at(row, 2))
		assert.Equal(t, OffsetFormula("A3*2", "Data", row-3), f.Formula, "row %d", row)
		assert.Equal(t, 3, f.Style)
		h, ok := out.RowHeight(row)
		require.True(t, ok)
		assert.Equal(t, 30.0, h)
	}
	assert.Equal(t, "$A$1&A5", out.Get(at(6, 5)).Formula)
	assert.Empty(t, out.Get(at(7, 5)).Formula)

	// клоны заголовка
	for _, row := range []int{5, 7} {
		c := out.Get(at(row, 1))
		assert.Equal(t, "{{HEADER.REGION}}", c.Value, "row %d: %s", row, dump)
		assert.Equal(t, 2, c.Style)
		assert.Empty(t, out.Get(at(row, 2)).Formula, "header clone has no data formulas")
	}
	h, _ := out.RowHeight(11)
	assert.Equal(t, 18.0, h)

	assert.ElementsMatch(t, []Range{
		{MinRow: 2, MinCol: 1, MaxRow: 2, MaxCol: 2},
		{MinRow: 11, MinCol: 1, MaxRow: 11, MaxCol: 2},
		{MinRow: 3, MinCol: 4, MaxRow: 12, MaxCol: 4},
		{MinRow: 1, MinCol: 3, MaxRow: 3, MaxCol: 3},
		{MinRow: 5, MinCol: 1, MaxRow: 5, MaxCol: 2},
		{MinRow: 7, MinCol: 1, MaxRow: 7, MaxCol: 2},
	}, out.Merges(), spew.Sdump(out.Merges()))
}

func TestExpand_NoRows(t *testing.T) {
	src := sampleSheet()
	out := Expand(src, NewExpansionPlan(2, 3, groupsOf(1)))
	assert.Equal(t, src.Refs(), out.Refs())
	out.SetValue(at(1, 1), "changed")
	assert.Equal(t, "title", src.Get(at(1, 1)).Value, "clone is independent")
}

func TestGroupRecords(t *testing.T) {
	region := NewTag("REGION", Field("region"))
	recs := []any{
		map[string]any{"id": 1, "region": "A"},
		map[string]any{"id": 2, "region": "B"},
		map[string]any{"id": 3, "region": "A"},
		map[string]any{"id": 4, "region": "C"},
		map[string]any{"id": 5, "region": "B"},
		map[string]any{"id": 6, "region": "A"},
	}
	groups, err := GroupRecords(region, recs, DefaultTagSettings())
	require.NoError(t, err)
	require.Len(t, groups, 3)

	var keys []string
	total := 0
	for _, g := range groups {
		keys = append(keys, g.Key)
		total += len(g.Records)
	}
	assert.Equal(t, []string{"A", "B", "C"}, keys)
	assert.Equal(t, len(recs), total)
	assert.Equal(t, []any{recs[0], recs[2], recs[5]}, groups[0].Records)
	assert.Equal(t, []any{recs[1], recs[4]}, groups[1].Records)
}

func TestGroupRecords_RoleInContext(t *testing.T) {
	var roles []any
	header := NewTag("H", ComputedFunc(func(ctx Context) (any, error) {
		roles = append(roles, ctx[ContextRole])
		return 1.0, nil
	}))
	groups, err := GroupRecords(header, []any{"x", "y"}, DefaultTagSettings())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "1", groups[0].Key, "numeric keys render like cells")
	assert.Equal(t, []any{"HEADER", "HEADER"}, roles)
}
