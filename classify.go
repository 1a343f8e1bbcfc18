package tagreports

import (
	"fmt"
	"regexp"
	"strings"
)

// Role — роль вхождения плейсхолдера, определяется его записью в шаблоне.
type Role int

const (
	RoleGeneral Role = iota
	RoleHeader
	RoleData
)

func (r Role) String() string {
	switch r {
	case RoleHeader:
		return "header"
	case RoleData:
		return "data"
	default:
		return "general"
	}
}

// Occurrence — одно вхождение плейсхолдера в тексте ячейки.
type Occurrence struct {
	Cell    CellRef
	Token   string // исходный текст вместе с разделителями
	TagName string
	RoleKey string // ключевое слово роли или "" если его нет
	Role    Role
}

// Placement связывает тег с ячейкой шаблона и её исходным текстом.
type Placement struct {
	Tag  *Tag
	Cell CellRef
	Text string
}

// GeneralTag — общий тег и все ячейки, где он встречается.
type GeneralTag struct {
	Tag   *Tag
	Cells []CellRef
}

// Classification — результат разбора листа за один проход Validate.
type Classification struct {
	Header  *Placement
	Data    []Placement
	General []GeneralTag
	// тексты ячеек с плейсхолдерами на момент разбора
	texts map[CellRef]string
}

// DataRow возвращает строку тегов данных (0, если их нет).
func (c *Classification) DataRow() int {
	if len(c.Data) == 0 {
		return 0
	}
	return c.Data[0].Cell.Row
}

// placeholderPattern строит регулярку для выбранных разделителей.
func placeholderPattern(s TagSettings) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(s.StartSymbol) + `(.+?)` + regexp.QuoteMeta(s.EndSymbol))
}

// ScanPlaceholders извлекает все вхождения плейсхолдеров из текста ячейки.
// Последний сегмент после сепаратора — имя тега, предпоследний — роль.
func ScanPlaceholders(cell CellRef, text string, s TagSettings) []Occurrence {
	s = s.withDefaults()
	return scanWith(placeholderPattern(s), cell, text, s)
}

func scanWith(rx *regexp.Regexp, cell CellRef, text string, s TagSettings) []Occurrence {
	if !strings.Contains(text, s.StartSymbol) {
		return nil
	}
	var out []Occurrence
	for _, m := range rx.FindAllStringSubmatch(text, -1) {
		parts := strings.Split(strings.TrimSpace(m[1]), s.SplitSymbol)
		occ := Occurrence{Cell: cell, Token: m[0], TagName: parts[len(parts)-1]}
		if len(parts) > 1 {
			occ.RoleKey = parts[len(parts)-2]
		}
		switch occ.RoleKey {
		case s.HeaderTag:
			occ.Role = RoleHeader
		case s.DataTag:
			occ.Role = RoleData
		default:
			occ.Role = RoleGeneral
		}
		out = append(out, occ)
	}
	return out
}

// Classify обходит все непустые строковые ячейки листа и раскладывает вхождения по трём корзинам.
func Classify(sheet *Sheet, tags TagSet, s TagSettings) (*Classification, error) {
	s = s.withDefaults()
	rx := placeholderPattern(s)
	cls := &Classification{texts: map[CellRef]string{}}
	generalIdx := map[string]int{}

	for _, ref := range sheet.Refs() {
		text := sheet.Get(ref).Text()
		if text == "" {
			continue
		}
		occs := scanWith(rx, ref, text, s)
		if len(occs) == 0 {
			continue
		}
		cls.texts[ref] = text
		for _, occ := range occs {
			tag, ok := tags.Lookup(occ.TagName)
			if !ok {
				return nil, fmt.Errorf("%w: %q в ячейке %s", ErrUnknownTag, occ.TagName, ref)
			}
			switch occ.Role {
			case RoleHeader:
				if cls.Header != nil {
					return nil, fmt.Errorf("%w: %s и %s", ErrDuplicateHeader, cls.Header.Cell, ref)
				}
				cls.Header = &Placement{Tag: tag, Cell: ref, Text: text}
			case RoleData:
				cls.Data = append(cls.Data, Placement{Tag: tag, Cell: ref, Text: text})
			default:
				idx, seen := generalIdx[tag.Name()]
				if !seen {
					idx = len(cls.General)
					generalIdx[tag.Name()] = idx
					cls.General = append(cls.General, GeneralTag{Tag: tag})
				}
				g := &cls.General[idx]
				if n := len(g.Cells); n == 0 || g.Cells[n-1] != ref {
					g.Cells = append(g.Cells, ref)
				}
			}
		}
	}
	return cls, nil
}
