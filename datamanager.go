package tagreports

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DataManager отдаёт вычисляемые стратегии по имени функции из конфигурации.
type DataManager interface {
	Lookup(fn string) (ValueFunc, error)
}

// DefaultDataManager — локализованные дата, время и числа.
// Аргументы берутся из контекста тега: date/time/value, language, format, decimals.
type DefaultDataManager struct {
	// Now подменяет текущее время (для тестов). nil — time.Now.
	Now func() time.Time
}

// Lookup реализует DataManager.
func (m DefaultDataManager) Lookup(fn string) (ValueFunc, error) {
	switch fn {
	case "localized_date", "get_localized_date":
		return m.LocalizedDate, nil
	case "localized_time", "get_localized_time":
		return m.LocalizedTime, nil
	case "localized_number":
		return m.LocalizedNumber, nil
	}
	return nil, fmt.Errorf("%w: функция %q", ErrPluginNotFound, fn)
}

func (m DefaultDataManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// LocalizedDate форматирует ctx["date"] (или сегодня) в стиле ctx["format"]:
// short, medium, long (по умолчанию), full либо Go-раскладка.
func (m DefaultDataManager) LocalizedDate(ctx Context) (any, error) {
	t, err := timeArg(ctx, "date", m.now())
	if err != nil {
		return nil, err
	}
	loc := mondayLocale(stringArg(ctx, "language", "en"))
	return monday.Format(t, dateLayout(stringArg(ctx, "format", "long"), loc), loc), nil
}

// LocalizedTime форматирует ctx["time"] (или сейчас), по умолчанию в стиле short.
func (m DefaultDataManager) LocalizedTime(ctx Context) (any, error) {
	t, err := timeArg(ctx, "time", m.now())
	if err != nil {
		return nil, err
	}
	loc := mondayLocale(stringArg(ctx, "language", "en"))
	return monday.Format(t, timeLayout(stringArg(ctx, "format", "short"), loc), loc), nil
}

// LocalizedNumber форматирует ctx["value"] (или obj) с разделителями выбранного языка.
func (m DefaultDataManager) LocalizedNumber(ctx Context) (any, error) {
	v, ok := ctx["value"]
	if !ok {
		v = ctx.Obj()
	}
	decimals := -1
	if d, ok := ctx["decimals"]; ok {
		n, ok := toNumber(d)
		if !ok {
			return nil, fmt.Errorf("decimals: ожидалось число, получено %v", d)
		}
		decimals = int(n)
	}
	return NumberFormatter(stringArg(ctx, "language", "en"), decimals)(v), nil
}

// NumberFormatter возвращает форматтер чисел для языка; decimals < 0 — без фиксированной точности.
// Нечисловые значения проходят без изменений.
func NumberFormatter(lang string, decimals int) Formatter {
	p := message.NewPrinter(languageTag(lang))
	return func(v any) any {
		n, ok := toNumber(v)
		if !ok {
			return v
		}
		if decimals >= 0 {
			return p.Sprintf("%v", number.Decimal(n, number.Scale(decimals)))
		}
		return p.Sprintf("%v", number.Decimal(n))
	}
}

// DateFormatter возвращает форматтер дат: time.Time или распознаваемая строка
// выводятся по раскладке layout с названиями месяцев выбранного языка.
func DateFormatter(lang, layout string) Formatter {
	loc := mondayLocale(lang)
	return func(v any) any {
		var t time.Time
		switch vv := v.(type) {
		case time.Time:
			t = vv
		case string:
			parsed, err := dateparse.ParseAny(vv)
			if err != nil {
				return v
			}
			t = parsed
		default:
			return v
		}
		return monday.Format(t, dateLayout(layout, loc), loc)
	}
}

func stringArg(ctx Context, key, def string) string {
	if s, ok := ctx[key].(string); ok && s != "" {
		return s
	}
	return def
}

func timeArg(ctx Context, key string, def time.Time) (time.Time, error) {
	switch v := ctx[key].(type) {
	case nil:
		return def, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return def, nil
		}
		return *v, nil
	case string:
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: не удалось распознать дату %q: %w", key, v, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("%s: неподдерживаемый тип %T", key, v)
	}
}

func toNumber(v any) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func normalizeLocale(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
}

func languageTag(lang string) language.Tag {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if err != nil {
		return language.English
	}
	return tag
}

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"ru":    monday.LocaleRuRU,
	"ru_ru": monday.LocaleRuRU,
	"uk":    monday.LocaleUkUA,
	"uk_ua": monday.LocaleUkUA,
	"pl":    monday.LocalePlPL,
	"cs":    monday.LocaleCsCZ,
	"tr":    monday.LocaleTrTR,
	"bg":    monday.LocaleBgBG,
	"ro":    monday.LocaleRoRO,
	"hu":    monday.LocaleHuHU,
}

// mondayLocale сопоставляет строку языка локали monday, с откатом на язык без региона.
func mondayLocale(lang string) monday.Locale {
	key := normalizeLocale(lang)
	if loc, ok := mondayLocales[key]; ok {
		return loc
	}
	if i := strings.Index(key, "_"); i > 0 {
		if loc, ok := mondayLocales[key[:i]]; ok {
			return loc
		}
	}
	return monday.LocaleEnUS
}

// dateLayout переводит стиль в раскладку Go. Неизвестный стиль считается раскладкой.
func dateLayout(style string, loc monday.Locale) string {
	us := loc == monday.LocaleEnUS
	switch style {
	case "short":
		if us {
			return "1/2/06"
		}
		return "02.01.06"
	case "medium":
		if us {
			return "Jan 2, 2006"
		}
		return "2 Jan 2006"
	case "long":
		if us {
			return "January 2, 2006"
		}
		return "2 January 2006"
	case "full":
		if us {
			return "Monday, January 2, 2006"
		}
		return "Monday, 2 January 2006"
	default:
		return style
	}
}

func timeLayout(style string, loc monday.Locale) string {
	us := loc == monday.LocaleEnUS
	switch style {
	case "short":
		if us {
			return "3:04 PM"
		}
		return "15:04"
	case "medium", "long", "full":
		if us {
			return "3:04:05 PM"
		}
		return "15:04:05"
	default:
		return style
	}
}

// DefaultTags — теги, которые доступны шаблону без конфигурации:
// DATE (сегодняшняя дата), TITLE и AUTHOR.
func DefaultTags(dm DataManager) ([]*Tag, error) {
	if dm == nil {
		dm = DefaultDataManager{}
	}
	date, err := dm.Lookup("localized_date")
	if err != nil {
		return nil, err
	}
	return []*Tag{
		NewTag("DATE", Computed(date), WithDescription("Сегодняшняя дата в локали отчёта")),
		NewTag("TITLE", Constant("Report title"), WithDescription("Заголовок отчёта")),
		NewTag("AUTHOR", Constant("Report author"), WithDescription("Автор отчёта")),
	}, nil
}
