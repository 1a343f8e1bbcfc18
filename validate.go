package tagreports

import "fmt"

type validationState int

const (
	stateUnvalidated validationState = iota
	stateValidated
	stateFailed
)

// Validator проверяет структурные инварианты шаблона до любых изменений листа.
type Validator struct {
	Settings       TagSettings
	RequiresHeader bool
}

// Validate выполняет проверки по порядку и возвращает готовую классификацию.
func (v Validator) Validate(sheet *Sheet, tags TagSet) (*Classification, error) {
	s := v.Settings.withDefaults()
	if err := tags.check(s); err != nil {
		return nil, err
	}
	cls, err := Classify(sheet, tags, s)
	if err != nil {
		return nil, err
	}
	if cls.Header == nil {
		if v.RequiresHeader {
			return nil, ErrMissingHeader
		}
		return cls, nil
	}
	if len(cls.Data) == 0 {
		return nil, fmt.Errorf("%w: заголовок в %s", ErrMissingData, cls.Header.Cell)
	}
	row := cls.Data[0].Cell.Row
	for _, d := range cls.Data[1:] {
		if d.Cell.Row != row {
			return nil, fmt.Errorf("%w: строки %d и %d", ErrInconsistentData, row, d.Cell.Row)
		}
	}
	if row != cls.Header.Cell.Row+1 {
		return nil, fmt.Errorf("%w: заголовок в строке %d, данные в строке %d", ErrDataNotAdjacent, cls.Header.Cell.Row, row)
	}
	return cls, nil
}
