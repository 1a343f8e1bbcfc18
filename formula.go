package tagreports

import (
	"regexp"
	"strconv"
	"strings"
)

// Ссылка на ячейку внутри формулы: $A$1, A1, $A1, A$1.
var rxCellRef = regexp.MustCompile(`(\$?)([A-Z]{1,3})(\$?)([0-9]+)`)

// formulaRef — найденная ссылка в формуле
type formulaRef struct {
	absRow bool
	row    int
}

// rewriteFormulaRows переписывает номер строки каждой ссылки, относящейся к листу sheet.
// Текст в кавычках, имена функций (LOG10) и ссылки на другие листы не трогаются.
func rewriteFormulaRows(formula, sheet string, fn func(ref formulaRef) int) string {
	if formula == "" {
		return formula
	}
	var out strings.Builder
	i := 0
	for i < len(formula) {
		if formula[i] == '"' {
			j := i + 1
			for j < len(formula) {
				if formula[j] == '"' {
					if j+1 < len(formula) && formula[j+1] == '"' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j < len(formula) {
				j++
			}
			out.WriteString(formula[i:j])
			i = j
			continue
		}
		j := strings.IndexByte(formula[i:], '"')
		if j < 0 {
			j = len(formula)
		} else {
			j += i
		}
		out.WriteString(rewriteSegment(formula, i, j, sheet, fn))
		i = j
	}
	return out.String()
}

// rewriteSegment обрабатывает кусок формулы [from, to) вне строковых литералов.
// Индексы считаются от начала формулы, чтобы видеть соседние символы и квалификатор листа.
func rewriteSegment(formula string, from, to int, sheet string, fn func(ref formulaRef) int) string {
	seg := formula[from:to]
	ms := rxCellRef.FindAllStringSubmatchIndex(seg, -1)
	if len(ms) == 0 {
		return seg
	}
	var sb strings.Builder
	last := 0
	for _, m := range ms {
		start, end := from+m[0], from+m[1]
		if !isStandaloneRef(formula, start, end) || !refersToSheet(formula, start, sheet) {
			continue
		}
		row, err := strconv.Atoi(seg[m[8]:m[9]])
		if err != nil {
			continue
		}
		ref := formulaRef{absRow: seg[m[6]:m[7]] == "$", row: row}
		newRow := fn(ref)
		if newRow < 1 {
			newRow = 1
		}
		sb.WriteString(seg[last:m[0]])
		sb.WriteString(seg[m[2]:m[7]])
		sb.WriteString(strconv.Itoa(newRow))
		last = m[1]
	}
	sb.WriteString(seg[last:])
	return sb.String()
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// isStandaloneRef отсекает совпадения внутри имён (LOG10(, TABLE1X, Sheet1).
func isStandaloneRef(formula string, start, end int) bool {
	if start > 0 {
		p := formula[start-1]
		if isIdentByte(p) || p == '$' {
			return false
		}
	}
	if end < len(formula) {
		n := formula[end]
		if isIdentByte(n) || n == '(' || n == '!' {
			return false
		}
	}
	return true
}

// refersToSheet проверяет квалификатор вида Sheet1!A1 или 'My sheet'!A1.
// Ссылка без квалификатора относится к текущему листу.
func refersToSheet(formula string, start int, sheet string) bool {
	if start == 0 || formula[start-1] != '!' {
		return true
	}
	end := start - 1
	if end > 0 && formula[end-1] == '\'' {
		k := end - 2
		for k >= 0 {
			if formula[k] == '\'' {
				if k > 0 && formula[k-1] == '\'' {
					k -= 2
					continue
				}
				break
			}
			k--
		}
		if k < 0 {
			return false
		}
		name := strings.ReplaceAll(formula[k+1:end-1], "''", "'")
		return name == sheet
	}
	k := end - 1
	for k >= 0 && isIdentByte(formula[k]) {
		k--
	}
	return formula[k+1:end] == sheet
}

// ShiftFormula сдвигает на delta строк все ссылки на строки >= fromRow.
// Так ведёт себя вставка строк: маркеры $ сохраняются как есть.
func ShiftFormula(formula, sheet string, fromRow, delta int) string {
	if delta == 0 {
		return formula
	}
	return rewriteFormulaRows(formula, sheet, func(ref formulaRef) int {
		if ref.row >= fromRow {
			return ref.row + delta
		}
		return ref.row
	})
}

// OffsetFormula переносит формулу на offset строк, как при копировании ячейки:
// меняются только относительные номера строк.
func OffsetFormula(formula, sheet string, offset int) string {
	if offset == 0 {
		return formula
	}
	return rewriteFormulaRows(formula, sheet, func(ref formulaRef) int {
		if ref.absRow {
			return ref.row
		}
		return ref.row + offset
	})
}
