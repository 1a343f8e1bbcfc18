package tagreports

// Group — записи с одинаковым отрендеренным значением тега заголовка.
type Group struct {
	Key     string
	Records []any
}

// GroupRecords раскладывает записи по ключу заголовка. Порядок групп — порядок
// первого появления ключа, порядок записей внутри группы сохраняется.
func GroupRecords(header *Tag, records []any, s TagSettings) ([]Group, error) {
	s = s.withDefaults()
	var groups []Group
	index := map[string]int{}
	for _, rec := range records {
		key, err := renderKey(header, rec, s)
		if err != nil {
			return nil, err
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups, nil
}

func renderKey(header *Tag, rec any, s TagSettings) (string, error) {
	v, err := header.Value(Context{ContextObj: rec, ContextRole: s.HeaderTag})
	if err != nil {
		return "", err
	}
	return toString(valToCell(v)), nil
}

// RowsNeeded — сколько строк нужно вставить: сумма размеров групп плюс число групп
// минус две строки, уже имеющиеся в шаблоне. Для пустого списка групп — 0.
func RowsNeeded(groups []Group) int {
	if len(groups) == 0 {
		return 0
	}
	n := len(groups)
	for _, g := range groups {
		n += len(g.Records)
	}
	return n - 2
}

// layout возвращает роли строк всего блока начиная со строки заголовка.
func layout(groups []Group) []Role {
	var roles []Role
	for _, g := range groups {
		roles = append(roles, RoleHeader)
		for range g.Records {
			roles = append(roles, RoleData)
		}
	}
	return roles
}
