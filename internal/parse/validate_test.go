package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, text string) Decoded {
	t.Helper()
	d, err := Decode(text)
	require.NoError(t, err)
	return d
}

func TestValidate_ListOfObjects(t *testing.T) {
	recs, err := Validate(mustDecode(t, `[{"a":1},{"a":2}]`))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	v, ok := recs[1].Cell("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestValidate_EmptyList(t *testing.T) {
	recs, err := Validate(mustDecode(t, `[]`))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestValidate_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"mixed elements", `[{"a":1}, "not a dict"]`},
		{"object not list", `{"a":1}`},
		{"list of lists", `[[1,2]]`},
		{"null element", `[{"a":1}, null]`},
		{"scalar", `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Validate(mustDecode(t, tt.in))
			assert.Nil(t, recs)

			var se *ShapeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.in, se.Raw)
		})
	}
}

func TestValidate_ZeroDecoded(t *testing.T) {
	_, err := Validate(Decoded{})

	var se *ShapeError
	assert.True(t, errors.As(err, &se))
}

func TestRecord_KeyOrderFollowsDocument(t *testing.T) {
	recs, err := Validate(mustDecode(t, `[{"Job Title":"Eng","Company":"Acme","Date Posted":"2024-01-02"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Job Title", "Company", "Date Posted"}, recs[0].Keys())
	assert.Equal(t, 3, recs[0].Len())
}

func TestRecord_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	recs, err := Validate(mustDecode(t, `[{"a":"x","b":"y","a":"z"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, recs[0].Keys())

	v, _ := recs[0].Cell("a")
	assert.Equal(t, "z", v)
}

func TestRecord_CellFormatting(t *testing.T) {
	raw := `[{"s":"N/A","n":1.5,"b":true,"z":null,"o":{"k": [1, 2]},"l":["x", "y"]}]`
	recs, err := Validate(mustDecode(t, raw))
	require.NoError(t, err)
	r := recs[0]

	cases := map[string]string{
		"s": "N/A",
		"n": "1.5",
		"b": "true",
		"z": "",
		"o": `{"k":[1,2]}`,
		"l": `["x","y"]`,
	}
	for key, want := range cases {
		got, ok := r.Cell(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok := r.Cell("missing")
	assert.False(t, ok)
}

func TestShapeError_ContentIsFragment(t *testing.T) {
	_, err := Records(`Here: {"a":[1]} done`)

	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "[1]", se.Content())
	assert.Equal(t, `Here: {"a":[1]} done`, se.Raw)
}

func TestRecords_EndToEnd(t *testing.T) {
	recs, err := Records("Sure:\n[{\"title\":\"Eng\"}]\nThanks")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = Records(`[{"a":1}, "not a dict"]`)
	var se *ShapeError
	assert.True(t, errors.As(err, &se))
}

func TestNewRecord(t *testing.T) {
	r := NewRecord("a", "1", "b", "2", "a", "3")
	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, _ := r.Cell("a")
	assert.Equal(t, "3", v)
}
