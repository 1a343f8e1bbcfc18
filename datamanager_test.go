package tagreports

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2023, time.July, 13, 14, 5, 0, 0, time.UTC)

func fixedManager() DefaultDataManager {
	return DefaultDataManager{Now: func() time.Time { return fixedNow }}
}

func TestLocalizedDate(t *testing.T) {
	dm := fixedManager()

	v, err := dm.LocalizedDate(Context{})
	require.NoError(t, err)
	assert.Equal(t, "July 13, 2023", v)

	v, err = dm.LocalizedDate(Context{"format": "short"})
	require.NoError(t, err)
	assert.Equal(t, "7/13/23", v)

	v, err = dm.LocalizedDate(Context{"date": "2024-02-01", "format": "2006-01-02"})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", v)

	v, err = dm.LocalizedDate(Context{"language": "ru"})
	require.NoError(t, err)
	s := v.(string)
	assert.True(t, strings.HasPrefix(s, "13 "), s)
	assert.True(t, strings.HasSuffix(s, " 2023"), s)
	assert.NotContains(t, s, "July")

	_, err = dm.LocalizedDate(Context{"date": "not a date at all"})
	assert.Error(t, err)
	_, err = dm.LocalizedDate(Context{"date": 42})
	assert.Error(t, err)
}

func TestLocalizedTime(t *testing.T) {
	dm := fixedManager()
	v, err := dm.LocalizedTime(Context{})
	require.NoError(t, err)
	assert.Equal(t, "2:05 PM", v)

	v, err = dm.LocalizedTime(Context{"language": "de"})
	require.NoError(t, err)
	assert.Equal(t, "14:05", v)

	v, err = dm.LocalizedTime(Context{"language": "de", "format": "medium"})
	require.NoError(t, err)
	assert.Equal(t, "14:05:00", v)
}

func TestLocalizedNumber(t *testing.T) {
	dm := fixedManager()
	v, err := dm.LocalizedNumber(Context{"value": 1234567.891, "decimals": 2})
	require.NoError(t, err)
	assert.Equal(t, "1,234,567.89", v)

	v, err = dm.LocalizedNumber(Context{ContextObj: 2.5, "decimals": 1, "language": "de"})
	require.NoError(t, err)
	assert.Equal(t, "2,5", v)

	_, err = dm.LocalizedNumber(Context{"value": 1, "decimals": "two"})
	assert.Error(t, err)
}

func TestDataManagerLookup(t *testing.T) {
	dm := fixedManager()
	for _, name := range []string{"localized_date", "get_localized_date", "localized_time", "get_localized_time", "localized_number"} {
		fn, err := dm.Lookup(name)
		require.NoError(t, err, name)
		_, err = fn(Context{})
		assert.NoError(t, err, name)
	}
	_, err := dm.Lookup("get_weather")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1,234.5", NumberFormatter("en", 1)(1234.5))
	assert.Equal(t, "n/a", NumberFormatter("en", 1)("n/a"), "non-numbers pass through")
	assert.Equal(t, "13.07.2023", DateFormatter("de", "02.01.2006")("2023-07-13"))
	assert.Equal(t, "13.07.2023", DateFormatter("de", "02.01.2006")(fixedNow))
	assert.Equal(t, 5, DateFormatter("de", "02.01.2006")(5))
}

func TestDefaultTags(t *testing.T) {
	tags, err := DefaultTags(fixedManager())
	require.NoError(t, err)
	require.Len(t, tags, 3)
	names := []string{tags[0].Name(), tags[1].Name(), tags[2].Name()}
	assert.Equal(t, []string{"DATE", "TITLE", "AUTHOR"}, names)
	v, err := tags[0].Value(Context{})
	require.NoError(t, err)
	assert.Equal(t, "July 13, 2023", v)
}

func TestRegistry(t *testing.T) {
	dm, err := LookupDataManager("")
	require.NoError(t, err)
	assert.IsType(t, DefaultDataManager{}, dm)

	RegisterDataManager("fixed", fixedManager())
	dm, err = LookupDataManager("fixed")
	require.NoError(t, err)
	fn, err := dm.Lookup("localized_date")
	require.NoError(t, err)
	v, _ := fn(Context{})
	assert.Equal(t, "July 13, 2023", v)

	_, err = LookupDataManager("nope")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	assert.Contains(t, Renderers(), "default")
	assert.Panics(t, func() { RegisterRenderer("nil", nil) })
}
