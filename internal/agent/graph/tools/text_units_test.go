package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

func TestTransformText(t *testing.T) {
	cases := map[string][2]string{
		"upper":      {"hello", "HELLO"},
		"LOWER":      {"HeLLo", "hello"},
		"title":      {"the QUICK  brown fox", "The Quick Brown Fox"},
		"reverse":    {"héllo", "olléh"},
		"trim":       {"  padded \n", "padded"},
		"word_count": {"one two  three", "3"},
		"char-count": {"héllo", "5"},
		"slug":       {"  Hello, World! Go 1.25 ", "hello-world-go-1-25"},
	}
	for op, tc := range cases {
		got, ok := TransformText(op, tc[0])
		require.True(t, ok, op)
		assert.Equal(t, tc[1], got, op)
	}

	_, ok := TransformText("rot13", "x")
	assert.False(t, ok)
}

func TestConvertUnit(t *testing.T) {
	cases := []struct {
		value    float64
		from, to string
		want     float64
		kind     string
	}{
		{1, "km", "m", 1000, "length"},
		{12, "inches", "ft", 1, "length"},
		{1, "mile", "km", 1.609344, "length"},
		{1, "kg", "lb", 2.2046226218, "mass"},
		{1, "gallon", "liters", 3.785411784, "volume"},
		{90, "minutes", "hours", 1.5, "time"},
		{100, "celsius", "fahrenheit", 212, "temperature"},
		{32, "F", "C", 0, "temperature"},
		{0, "c", "k", 273.15, "temperature"},
	}
	for _, tc := range cases {
		got, kind, err := ConvertUnit(tc.value, tc.from, tc.to)
		require.NoError(t, err, "%s->%s", tc.from, tc.to)
		assert.InDelta(t, tc.want, got, 1e-6, "%s->%s", tc.from, tc.to)
		assert.Equal(t, tc.kind, kind)
	}

	_, _, err := ConvertUnit(1, "kg", "m")
	assert.Error(t, err)
	_, _, err = ConvertUnit(1, "parsec", "m")
	assert.Error(t, err)
}

func TestCategoryTools(t *testing.T) {
	assert.Equal(t, []string{ToolCalculator}, CategoryTools(model.CategoryCalculator))
	assert.Len(t, CategoryTools(model.CategoryAuth), 4)
	assert.Empty(t, CategoryTools(model.CategoryGeneral))
	for _, c := range model.ToolCategories {
		if c.UsesTools() {
			assert.NotEmpty(t, CategoryTools(c), c)
		}
	}
}
