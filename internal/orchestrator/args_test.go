package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unit-converter/internal/converter"
)

func TestParseConvertArguments(t *testing.T) {
	two := 2

	tests := []struct {
		name string
		raw  string
		want converter.Request
	}{
		{
			name: "json numbers",
			raw:  `{"value": 100, "from_unit": "cm", "to_unit": "in"}`,
			want: converter.Request{Value: 100, FromUnit: "cm", ToUnit: "in"},
		},
		{
			name: "numeric string value",
			raw:  `{"value": " 32.5 ", "from_unit": "F", "to_unit": "C"}`,
			want: converter.Request{Value: 32.5, FromUnit: "F", ToUnit: "C"},
		},
		{
			name: "zero value",
			raw:  `{"value": 0, "from_unit": "C", "to_unit": "F"}`,
			want: converter.Request{Value: 0, FromUnit: "C", ToUnit: "F"},
		},
		{
			name: "precision and padded units",
			raw:  `{"value": 1, "from_unit": " kg ", "to_unit": "lb", "precision": "2"}`,
			want: converter.Request{Value: 1, FromUnit: "kg", ToUnit: "lb", Precision: &two},
		},
		{
			name: "null precision is ignored",
			raw:  `{"value": 1, "from_unit": "kg", "to_unit": "lb", "precision": null}`,
			want: converter.Request{Value: 1, FromUnit: "kg", ToUnit: "lb"},
		},
		{
			name: "unknown fields are ignored",
			raw:  `{"value": 1, "from_unit": "kg", "to_unit": "lb", "category": "mass"}`,
			want: converter.Request{Value: 1, FromUnit: "kg", ToUnit: "lb"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConvertArguments(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConvertArgumentsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"empty", ``, "value"},
		{"not an object", `[1, "cm", "in"]`, ""},
		{"broken json", `{"value": 1,`, ""},
		{"missing value", `{"from_unit": "cm", "to_unit": "in"}`, "value"},
		{"null value", `{"value": null, "from_unit": "cm", "to_unit": "in"}`, "value"},
		{"non numeric value", `{"value": "ten", "from_unit": "cm", "to_unit": "in"}`, "value"},
		{"boolean value", `{"value": true, "from_unit": "cm", "to_unit": "in"}`, "value"},
		{"nan value", `{"value": "NaN", "from_unit": "cm", "to_unit": "in"}`, "value"},
		{"missing from unit", `{"value": 1, "to_unit": "in"}`, "from_unit"},
		{"blank to unit", `{"value": 1, "from_unit": "cm", "to_unit": "  "}`, "to_unit"},
		{"numeric unit", `{"value": 1, "from_unit": 5, "to_unit": "in"}`, "from_unit"},
		{"fractional precision", `{"value": 1, "from_unit": "cm", "to_unit": "in", "precision": 2.5}`, "precision"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConvertArguments(tt.raw)
			var malformed *converter.MalformedArgumentsError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.field, malformed.Field)
			assert.Equal(t, converter.CodeMalformedArguments, converter.Code(err))
		})
	}
}

func TestRequestArgs(t *testing.T) {
	three := 3
	assert.Equal(t, map[string]any{
		"value":     1.5,
		"from_unit": "kg",
		"to_unit":   "lb",
	}, requestArgs(converter.Request{Value: 1.5, FromUnit: "kg", ToUnit: "lb"}))

	assert.Equal(t, 3, requestArgs(converter.Request{Value: 1, FromUnit: "kg", ToUnit: "lb", Precision: &three})["precision"])
}
