package tagreports

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReportRenderer — возможность «проверить шаблон и построить отчёт».
// Реализация выбирается по имени из конфигурации (RegisterRenderer).
type ReportRenderer interface {
	Validate() error
	Validated() bool
	Generate(records []any, target Target) error
	Close() error
}

// ReportGenerator подставляет значения тегов в первый лист шаблона и размножает
// пару строк заголовок/данные по группам записей.
//
// Экземпляр одноразовый: он владеет книгой, и повторный Generate на том же
// экземпляре вставит строки ещё раз поверх уже развёрнутого листа.
// Параллельные вызовы не поддерживаются.
type ReportGenerator struct {
	tags           TagSet
	settings       TagSettings
	requiresHeader bool
	templatesDir   string
	reportsDir     string
	logger         *log.Logger

	file  *excelize.File
	sheet *Sheet

	state validationState
	cls   *Classification
}

// Option настраивает генератор
type Option func(*ReportGenerator)

// WithSettings задаёт синтаксис плейсхолдеров.
func WithSettings(s TagSettings) Option { return func(g *ReportGenerator) { g.settings = s } }

// WithRequiresHeader требует наличия тега заголовка в шаблоне.
func WithRequiresHeader(v bool) Option { return func(g *ReportGenerator) { g.requiresHeader = v } }

// WithTemplatesDir — каталог, относительно которого ищется шаблон.
func WithTemplatesDir(dir string) Option { return func(g *ReportGenerator) { g.templatesDir = dir } }

// WithReportsDir — каталог для GenerateReport.
func WithReportsDir(dir string) Option { return func(g *ReportGenerator) { g.reportsDir = dir } }

// WithLogger задаёт логгер (по умолчанию log.Default()).
func WithLogger(l *log.Logger) Option { return func(g *ReportGenerator) { g.logger = l } }

func newGenerator(tags []*Tag, opts []Option) *ReportGenerator {
	g := &ReportGenerator{tags: NewTagSet(tags...), settings: DefaultTagSettings(), logger: log.Default()}
	for _, opt := range opts {
		opt(g)
	}
	g.settings = g.settings.withDefaults()
	return g
}

// NewReportGenerator открывает шаблон (путь берётся относительно WithTemplatesDir).
func NewReportGenerator(tags []*Tag, template string, opts ...Option) (*ReportGenerator, error) {
	g := newGenerator(tags, opts)
	path := template
	if g.templatesDir != "" && !filepath.IsAbs(template) {
		path = filepath.Join(g.templatesDir, template)
	}
	g.logger.Printf("🔄 Загрузка Excel шаблона: %s", path)
	f, err := OpenTemplate(path)
	if err != nil {
		g.logger.Printf("❌ Ошибка загрузки шаблона: %v", err)
		return nil, err
	}
	if err := g.attach(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	g.logger.Printf("✅ Шаблон загружен успешно")
	return g, nil
}

// NewReportGeneratorFromFile работает с уже открытой книгой.
func NewReportGeneratorFromFile(f *excelize.File, tags []*Tag, opts ...Option) (*ReportGenerator, error) {
	g := newGenerator(tags, opts)
	if err := g.attach(f); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *ReportGenerator) attach(f *excelize.File) error {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("%w: в книге нет листов", ErrTemplateNotFound)
	}
	sheet, err := LoadSheet(f, sheets[0])
	if err != nil {
		return fmt.Errorf("парсинг листа %s: %w", sheets[0], err)
	}
	g.file = f
	g.sheet = sheet
	return nil
}

// File возвращает книгу, которой владеет генератор.
func (g *ReportGenerator) File() *excelize.File { return g.file }

// Sheet возвращает текущее состояние первого листа.
func (g *ReportGenerator) Sheet() *Sheet { return g.sheet }

// Classification возвращает результат последней успешной проверки.
func (g *ReportGenerator) Classification() *Classification { return g.cls }

// Validated сообщает, прошла ли проверка.
func (g *ReportGenerator) Validated() bool { return g.state == stateValidated }

// Validate разбирает теги шаблона и проверяет инварианты. При ошибке
// результаты предыдущего успешного разбора не сохраняются.
func (g *ReportGenerator) Validate() error {
	g.state, g.cls = stateUnvalidated, nil
	cls, err := Validator{Settings: g.settings, RequiresHeader: g.requiresHeader}.Validate(g.sheet, g.tags)
	if err != nil {
		g.state = stateFailed
		g.logger.Printf("❌ Шаблон не прошёл проверку: %v", err)
		return err
	}
	g.cls = cls
	g.state = stateValidated
	g.logger.Printf("✅ Шаблон проверен: общих тегов %d, тегов данных %d, заголовок: %v", len(cls.General), len(cls.Data), cls.Header != nil)
	return nil
}

// GenerateReport строит отчёт и сохраняет его в каталог отчётов под именем name.
func (g *ReportGenerator) GenerateReport(records []any, name string) error {
	return g.Generate(records, ToFile(filepath.Join(g.reportsDir, name)))
}

// Generate подставляет общие теги, размножает строки по группам, заполняет
// теги данных и сохраняет книгу в target.
func (g *ReportGenerator) Generate(records []any, target Target) error {
	if !g.Validated() {
		return ErrNotValidated
	}
	if target == nil {
		return errUnsupportedTarget
	}
	startTime := time.Now()
	g.logger.Printf("📝 Количество записей: %d", len(records))

	work := g.sheet.Clone()
	rx := placeholderPattern(g.settings)
	occsAt := func(ref CellRef) []Occurrence {
		return scanWith(rx, ref, g.cls.texts[ref], g.settings)
	}

	g.logger.Printf("🔄 Подстановка общих тегов...")
	for _, gt := range g.cls.General {
		for _, ref := range gt.Cells {
			if err := g.writeGeneral(work, ref, occsAt(ref)); err != nil {
				return err
			}
		}
	}

	if g.cls.Header != nil {
		var err error
		if work, err = g.expand(work, records, occsAt); err != nil {
			return err
		}
	}

	if err := StoreSheet(g.file, g.sheet, work); err != nil {
		g.logger.Printf("❌ Ошибка записи листа: %v", err)
		return err
	}
	g.sheet = work

	g.logger.Printf("💾 Сохранение файла...")
	if err := target.Save(g.file); err != nil {
		g.logger.Printf("❌ Ошибка сохранения: %v", err)
		return err
	}
	g.logger.Printf("✅ Отчёт создан за %v", time.Since(startTime))
	return nil
}

// writeGeneral подставляет общие теги ячейки. Теги заголовка и данных в той же
// ячейке остаются на месте до развёртывания.
func (g *ReportGenerator) writeGeneral(work *Sheet, ref CellRef, occs []Occurrence) error {
	cur := work.Get(ref).Text()
	if cur == "" {
		return nil
	}
	v, err := substitute(cur, occs, func(o Occurrence) (any, bool, error) {
		if o.Role != RoleGeneral {
			return nil, false, nil
		}
		return g.resolve(o, Context{})
	})
	if err != nil {
		return err
	}
	work.SetValue(ref, v)
	return nil
}

func (g *ReportGenerator) resolve(o Occurrence, ctx Context) (any, bool, error) {
	tag, ok := g.tags.Lookup(o.TagName)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownTag, o.TagName)
	}
	v, err := tag.Value(ctx)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// expand группирует записи, вставляет строки и заполняет строки заголовков и данных.
func (g *ReportGenerator) expand(work *Sheet, records []any, occsAt func(CellRef) []Occurrence) (*Sheet, error) {
	header := g.cls.Header
	headerRow, dataRow := header.Cell.Row, g.cls.DataRow()

	g.logger.Printf("🔄 Группировка по тегу %s...", header.Tag.Name())
	groups, err := GroupRecords(header.Tag, records, g.settings)
	if err != nil {
		return nil, err
	}
	plan := NewExpansionPlan(headerRow, dataRow, groups)
	g.logger.Printf("📊 Групп: %d, вставляется строк: %d", len(groups), plan.Count())

	headerCells := g.templateCells(headerRow)
	dataCells := g.templateCells(dataRow)

	if len(groups) == 0 {
		clearRoleCells(work, headerCells, occsAt)
		clearRoleCells(work, dataCells, occsAt)
		return work, nil
	}

	out := Expand(work, plan)
	row := headerRow
	for _, grp := range groups {
		hctx := Context{ContextObj: grp.Records[0], ContextRole: g.settings.HeaderTag}
		if err := g.writeRow(out, row, headerCells, hctx, occsAt); err != nil {
			return nil, err
		}
		row++
		for _, rec := range grp.Records {
			dctx := Context{ContextObj: rec, ContextRole: g.settings.DataTag}
			if err := g.writeRow(out, row, dataCells, dctx, occsAt); err != nil {
				return nil, err
			}
			row++
		}
	}
	return out, nil
}

// templateCells — ячейки строки шаблона, в которых были плейсхолдеры
func (g *ReportGenerator) templateCells(row int) []CellRef {
	var refs []CellRef
	for ref := range g.cls.texts {
		if ref.Row == row {
			refs = append(refs, ref)
		}
	}
	return refs
}

// writeRow рендерит ячейки строки шаблона в строку row итогового листа.
func (g *ReportGenerator) writeRow(out *Sheet, row int, cells []CellRef, ctx Context, occsAt func(CellRef) []Occurrence) error {
	for _, ref := range cells {
		v, err := substitute(g.cls.texts[ref], occsAt(ref), func(o Occurrence) (any, bool, error) {
			if o.Role == RoleGeneral {
				return g.resolve(o, Context{})
			}
			return g.resolve(o, ctx)
		})
		if err != nil {
			return err
		}
		out.SetValue(CellRef{Row: row, Col: ref.Col}, v)
	}
	return nil
}

// clearRoleCells очищает ячейки с тегами заголовка/данных, когда записей нет.
func clearRoleCells(work *Sheet, cells []CellRef, occsAt func(CellRef) []Occurrence) {
	for _, ref := range cells {
		for _, o := range occsAt(ref) {
			if o.Role != RoleGeneral {
				work.SetValue(ref, nil)
				break
			}
		}
	}
}

// Close закрывает книгу шаблона.
func (g *ReportGenerator) Close() error {
	if g.file == nil {
		return nil
	}
	return g.file.Close()
}
