package tagreports

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagResolve_Constant(t *testing.T) {
	tag := NewTag("TITLE", Constant("Report"), WithDescription("title"))
	v, err := tag.Value(Context{"obj": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "Report", v)
	assert.Equal(t, "title", tag.Description())
	assert.Equal(t, "TITLE", tag.String())
}

func TestTagResolve_ContextPrecedence(t *testing.T) {
	tag := NewTag("LANG", ComputedFunc(func(ctx Context) (any, error) {
		return ctx["language"], nil
	}), WithArgs(Context{"language": "en"}))

	v, err := tag.Value(nil)
	require.NoError(t, err)
	assert.Equal(t, "en", v, "tag-local argument")

	v, err = tag.Value(Context{"language": "ru"})
	require.NoError(t, err)
	assert.Equal(t, "ru", v, "caller context wins")

	v, _ = tag.Value(nil)
	assert.Equal(t, "en", v, "caller context is not retained")
}

func TestTagResolve_Formatter(t *testing.T) {
	tag := NewTag("NAME", Field("name"), WithFormatter(func(v any) any {
		return strings.ToUpper(v.(string))
	}))
	v, err := tag.Value(Context{ContextObj: map[string]any{"name": "sava"}})
	require.NoError(t, err)
	assert.Equal(t, "SAVA", v)

	raw, err := tag.Resolve(Context{ContextObj: map[string]any{"name": "sava"}})
	require.NoError(t, err)
	assert.Equal(t, "sava", raw)
}

func TestTagResolve_Errors(t *testing.T) {
	boom := errors.New("boom")
	failing := NewTag("F", ComputedFunc(func(Context) (any, error) { return nil, boom }))
	_, err := failing.Value(nil)
	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, boom)

	panicking := NewTag("P", ComputedFunc(func(ctx Context) (any, error) {
		return ctx["obj"].(map[string]any)["x"], nil
	}))
	_, err = panicking.Value(Context{})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "P", rerr.Tag)

	_, err = NewTag("N", Computed(nil)).Value(nil)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestTagPlaceholder(t *testing.T) {
	tag := NewTag("REGION", Constant(""))
	s := DefaultTagSettings()

	p, err := tag.Placeholder(s, "")
	require.NoError(t, err)
	assert.Equal(t, "{{REGION}}", p)

	p, err = tag.Placeholder(s, "HEADER")
	require.NoError(t, err)
	assert.Equal(t, "{{HEADER.REGION}}", p)

	p, err = tag.Placeholder(TagSettings{StartSymbol: "<", EndSymbol: ">", SplitSymbol: "|", DataTag: "ROW"}, "ROW")
	require.NoError(t, err)
	assert.Equal(t, "<ROW|REGION>", p)

	_, err = tag.Placeholder(s, "FOOTER")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestTagEqual(t *testing.T) {
	a := NewTag("X", Constant(1))
	b := NewTag("X", Constant(2))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewTag("Y", Constant(1))))
	assert.False(t, a.Equal(nil))
}

func TestTagSet(t *testing.T) {
	first := NewTag("X", Constant(1))
	last := NewTag("X", Constant(2))
	ts := NewTagSet(first, last, NewTag("Y", Constant(3)))
	assert.Equal(t, 2, ts.Len())
	got, ok := ts.Lookup("X")
	require.True(t, ok)
	assert.Same(t, last, got)
	_, ok = ts.Lookup("x")
	assert.False(t, ok, "lookup is case sensitive")

	s := DefaultTagSettings()
	assert.NoError(t, ts.check(s))
	assert.ErrorIs(t, NewTagSet(NewTag(" ", Constant(1))).check(s), ErrInvalidTag)
	assert.ErrorIs(t, NewTagSet(NewTag("A}}B", Constant(1))).check(s), ErrInvalidTag)
	assert.ErrorIs(t, NewTagSet(nil).check(s), ErrInvalidTag)
}

func TestScanPlaceholders(t *testing.T) {
	s := DefaultTagSettings()
	ref := at(2, 3)
	occs := ScanPlaceholders(ref, "{{TITLE}} / {{HEADER.REGION}} / {{DATA.NAME}} / {{X.Y.Z}}", s)
	require.Len(t, occs, 4)

	assert.Equal(t, Occurrence{Cell: ref, Token: "{{TITLE}}", TagName: "TITLE", Role: RoleGeneral}, occs[0])
	assert.Equal(t, RoleHeader, occs[1].Role)
	assert.Equal(t, "REGION", occs[1].TagName)
	assert.Equal(t, RoleData, occs[2].Role)
	// последний сегмент — имя, предпоследний — роль
	assert.Equal(t, "Z", occs[3].TagName)
	assert.Equal(t, "Y", occs[3].RoleKey)
	assert.Equal(t, RoleGeneral, occs[3].Role)

	assert.Empty(t, ScanPlaceholders(ref, "no tags here", s))
	assert.Empty(t, ScanPlaceholders(ref, "{{}}", s))
}

func TestClassify(t *testing.T) {
	sheet := NewSheet("S")
	sheet.Set(at(1, 1), Cell{Value: "{{TITLE}}"})
	sheet.Set(at(1, 2), Cell{Value: "{{TITLE}} {{TITLE}}"})
	sheet.Set(at(2, 1), Cell{Value: "{{HEADER.REGION}}"})
	sheet.Set(at(3, 1), Cell{Value: "{{DATA.NAME}}"})
	sheet.Set(at(3, 2), Cell{Value: 42.0})
	sheet.Set(at(5, 1), Cell{Value: "by {{AUTHOR}} / {{TITLE}}"})

	tags := NewTagSet(
		NewTag("TITLE", Constant("t")),
		NewTag("AUTHOR", Constant("a")),
		NewTag("REGION", Field("region")),
		NewTag("NAME", Field("name")),
	)
	cls, err := Classify(sheet, tags, DefaultTagSettings())
	require.NoError(t, err)

	require.NotNil(t, cls.Header)
	assert.Equal(t, at(2, 1), cls.Header.Cell)
	require.Len(t, cls.Data, 1)
	assert.Equal(t, 3, cls.DataRow())

	require.Len(t, cls.General, 2)
	assert.Equal(t, "TITLE", cls.General[0].Tag.Name())
	assert.Equal(t, []CellRef{at(1, 1), at(1, 2), at(5, 1)}, cls.General[0].Cells)
	assert.Equal(t, "AUTHOR", cls.General[1].Tag.Name())
}
