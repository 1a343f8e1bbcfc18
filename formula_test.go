package tagreports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShiftFormula(t *testing.T) {
	cases := []struct {
		name    string
		formula string
		want    string
	}{
		{"above insertion", "SUM(B2:B3)", "SUM(B2:B3)"},
		{"at insertion", "B4*2", "B9*2"},
		{"range across insertion", "SUM(B3:B10)", "SUM(B3:B15)"},
		{"absolute row shifts too", "$B$4+B$5", "$B$9+B$10"},
		{"function with digits", "LOG10(B4)", "LOG10(B9)"},
		{"string literal", `IF(A4="B4","x""B4","y")`, `IF(A9="B4","x""B4","y")`},
		{"own sheet qualifier", "Data!B4+Other!B4", "Data!B9+Other!B4"},
		{"quoted own sheet", "'Data'!B4+'It''s'!B4", "'Data'!B9+'It''s'!B4"},
		{"three-letter column", "AAA100", "AAA105"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShiftFormula(tc.formula, "Data", 4, 5))
		})
	}
}

func TestShiftFormula_OtherSheetName(t *testing.T) {
	assert.Equal(t, "'It''s'!B9", ShiftFormula("'It''s'!B4", "It's", 4, 5))
	assert.Equal(t, "DATA2!B9", ShiftFormula("DATA2!B4", "DATA2", 4, 5))
}

func TestOffsetFormula(t *testing.T) {
	assert.Equal(t, "B7*1000", OffsetFormula("B3*1000", "Sheet1", 4))
	assert.Equal(t, "B7*$C$1+D$2", OffsetFormula("B3*$C$1+D$2", "Sheet1", 4))
	assert.Equal(t, "SUM(A1:A1)", OffsetFormula("SUM(A3:A4)", "Sheet1", -5), "row clamps at 1")
	assert.Equal(t, "B3", OffsetFormula("B3", "Sheet1", 0))
}
