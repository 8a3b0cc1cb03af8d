package fieldtype

import (
	"encoding/json"
	"errors"
	"testing"

	"institution-manager/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spaces(ids ...uint) SpaceExists {
	return func(id uint) (bool, error) {
		for _, known := range ids {
			if known == id {
				return true, nil
			}
		}
		return false, nil
	}
}

func normalized(t *testing.T, kind Kind, options []string, raw interface{}) string {
	t.Helper()
	out, err := Normalize(kind, options, raw, spaces(7))
	require.NoError(t, err)
	require.NotNil(t, out)
	return *out
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello", normalized(t, Text, nil, "hello"))
	assert.Equal(t, "42", normalized(t, Text, nil, json.RawMessage(`42`)))
	assert.Equal(t, "true", normalized(t, Text, nil, true))

	out, err := Normalize(Text, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = Normalize(Text, nil, json.RawMessage(`null`), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestNormalizeSelect(t *testing.T) {
	options := []string{"red", "green"}
	assert.Equal(t, "green", normalized(t, Select, options, "green"))

	_, err := Normalize(Select, options, "blue", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))

	_, err = Normalize(Select, options, nil, nil)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))

	// no declared options means any value is accepted
	assert.Equal(t, "blue", normalized(t, Select, nil, "blue"))
}

func TestNormalizeBoolean(t *testing.T) {
	cases := map[interface{}]string{
		true:      "true",
		false:     "false",
		"TRUE":    "true",
		" yes ":   "true",
		"y":       "true",
		"1":       "true",
		"No":      "false",
		"n":       "false",
		"0":       "false",
		"false":   "false",
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalized(t, Boolean, nil, raw), "raw=%v", raw)
	}

	for _, bad := range []interface{}{"maybe", json.Number("1"), nil, ""} {
		_, err := Normalize(Boolean, nil, bad, nil)
		assert.True(t, errors.Is(err, types.ErrInvalidValue), "raw=%v", bad)
	}
}

func TestNormalizeNumberKeepsOriginalText(t *testing.T) {
	assert.Equal(t, "3.50", normalized(t, Number, nil, json.RawMessage(`3.50`)))
	assert.Equal(t, "10", normalized(t, Number, nil, json.RawMessage(`10`)))
	assert.Equal(t, "1e3", normalized(t, Number, nil, "1e3"))

	_, err := Normalize(Number, nil, "twelve", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))
	_, err = Normalize(Number, nil, true, nil)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))
}

func TestNormalizeDateTime(t *testing.T) {
	assert.Equal(t, "2024-05-01T09:30:00", normalized(t, DateTime, nil, "2024-05-01T09:30"))
	assert.Equal(t, "2024-05-01T09:30:00", normalized(t, DateTime, nil, "2024-05-01 09:30:00"))
	assert.Equal(t, "2024-05-01T00:00:00", normalized(t, DateTime, nil, "2024-05-01"))
	assert.Equal(t, "2024-05-01T09:30:00+00:00", normalized(t, DateTime, nil, "2024-05-01T09:30:00Z"))
	assert.Equal(t, "2024-05-01T09:30:00.250000+02:00", normalized(t, DateTime, nil, "2024-05-01T09:30:00.25+02:00"))

	_, err := Normalize(DateTime, nil, "yesterday", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))
}

func TestNormalizeDateAndTime(t *testing.T) {
	assert.Equal(t, "2024-02-29", normalized(t, Date, nil, "2024-02-29"))
	assert.Equal(t, "09:05:00", normalized(t, Time, nil, "09:05"))
	assert.Equal(t, "23:59:59", normalized(t, Time, nil, "23:59:59"))
	assert.Equal(t, "23:59:59.500000", normalized(t, Time, nil, "23:59:59.5"))

	for _, bad := range []string{"2023-02-29", "2024-1-2", "02/03/2024"} {
		_, err := Normalize(Date, nil, bad, nil)
		assert.True(t, errors.Is(err, types.ErrInvalidValue), bad)
	}
	for _, bad := range []string{"25:00", "noon", "9"} {
		_, err := Normalize(Time, nil, bad, nil)
		assert.True(t, errors.Is(err, types.ErrInvalidValue), bad)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := map[Kind][]interface{}{
		Boolean:  {"YES", "n", true},
		Date:     {"2024-12-31"},
		DateTime: {"2024-05-01T09:30", "2024-05-01T09:30:00.123456-05:00", "2024-05-01T09:30:00Z"},
		Time:     {"07:15", "07:15:30.000001"},
	}
	for kind, values := range inputs {
		for _, v := range values {
			once := normalized(t, kind, nil, v)
			twice := normalized(t, kind, nil, once)
			assert.Equal(t, once, twice, "kind=%s raw=%v", kind, v)
		}
	}
}

func TestNormalizeSpaceReference(t *testing.T) {
	assert.Equal(t, "7", normalized(t, Space, nil, json.RawMessage(`7`)))
	assert.Equal(t, "7", normalized(t, Space, nil, "7"))

	for _, bad := range []interface{}{"8", "seven", json.Number("7.5"), nil} {
		_, err := Normalize(Space, nil, bad, spaces(7))
		assert.True(t, errors.Is(err, types.ErrInvalidValue), "raw=%v", bad)
	}
}

func TestNormalizeSpaceLookupFailureIsNotInvalidValue(t *testing.T) {
	boom := errors.New("db down")
	_, err := Normalize(Space, nil, "7", func(uint) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNormalizeRejectsUnknownKind(t *testing.T) {
	_, err := Normalize(Kind("colour"), nil, "x", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))
	assert.False(t, Kind("colour").IsValid())
	assert.True(t, Space.IsValid())
}

func TestDecode(t *testing.T) {
	s := func(v string) *string { return &v }

	assert.Equal(t, true, Decode(Boolean, s("true")))
	assert.Equal(t, 3.5, Decode(Number, s("3.5")))
	assert.Equal(t, int64(12), Decode(Space, s("12")))
	assert.Equal(t, "2024-01-01", Decode(Date, s("2024-01-01")))
	assert.Nil(t, Decode(Text, nil))
}
