package tagreports

// TagSettings описывает синтаксис плейсхолдеров: {{HEADER.REGION}}, {{DATA.RIVER}}, {{TITLE}}.
// Разделители, сепаратор и ключевые слова ролей должны попарно различаться,
// это ответственность вызывающего.
type TagSettings struct {
	StartSymbol string `yaml:"tag_start_symbol"`
	EndSymbol   string `yaml:"tag_end_symbol"`
	SplitSymbol string `yaml:"split_symbol"`
	HeaderTag   string `yaml:"header_tag"`
	DataTag     string `yaml:"data_tag"`
}

// DefaultTagSettings возвращает синтаксис по умолчанию.
func DefaultTagSettings() TagSettings {
	return TagSettings{
		StartSymbol: "{{",
		EndSymbol:   "}}",
		SplitSymbol: ".",
		HeaderTag:   "HEADER",
		DataTag:     "DATA",
	}
}

// withDefaults дополняет незаданные поля значениями по умолчанию
func (s TagSettings) withDefaults() TagSettings {
	d := DefaultTagSettings()
	if s.StartSymbol == "" {
		s.StartSymbol = d.StartSymbol
	}
	if s.EndSymbol == "" {
		s.EndSymbol = d.EndSymbol
	}
	if s.SplitSymbol == "" {
		s.SplitSymbol = d.SplitSymbol
	}
	if s.HeaderTag == "" {
		s.HeaderTag = d.HeaderTag
	}
	if s.DataTag == "" {
		s.DataTag = d.DataTag
	}
	return s
}
