package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

func TestParseRoute_ModelReply(t *testing.T) {
	cases := map[string]model.ToolCategory{
		"search":                   model.CategorySearch,
		"  Calculator\n":           model.CategoryCalculator,
		"`units`":                  model.CategoryUnits,
		"**auth**":                 model.CategoryAuth,
		"Category: http":           model.CategoryHTTP,
		`{"category":"text"}`:      model.CategoryText,
		"general.":                 model.CategoryGeneral,
		"text\nbecause it is text": model.CategoryText,
	}
	for reply, want := range cases {
		got := ParseRoute(reply, "anything")
		assert.Equal(t, model.Route{Category: want, Source: model.RouteFromModel}, got, reply)
	}
}

func TestParseRoute_KeywordFallback(t *testing.T) {
	cases := map[string]model.ToolCategory{
		"fetch https://example.com/health": model.CategoryHTTP,
		"please log in as ada":             model.CategoryAuth,
		"convert 5 km to miles":            model.CategoryUnits,
		"what is 12 * (3 + 4)":             model.CategoryCalculator,
		"make this uppercase: hello":       model.CategoryText,
		"what is the latest news about Go": model.CategorySearch,
	}
	for text, want := range cases {
		got := ParseRoute("I think the user wants something", text)
		assert.Equal(t, model.Route{Category: want, Source: model.RouteFromKeywords}, got, text)
	}
}

func TestParseRoute_GeneralFallback(t *testing.T) {
	got := ParseRoute("", "tell me a joke")
	assert.Equal(t, model.Route{Category: model.CategoryGeneral, Source: model.RouteFallback}, got)

	got = ParseRoute("weather", "hello there")
	assert.Equal(t, model.CategoryGeneral, got.Category)
	assert.Equal(t, model.RouteFallback, got.Source)
}
