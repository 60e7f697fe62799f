package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
)

const unitConvertDesc = "Convert a value between units of length mass volume temperature or time."

type unitKind string

const (
	kindLength      unitKind = "length"
	kindMass        unitKind = "mass"
	kindVolume      unitKind = "volume"
	kindTemperature unitKind = "temperature"
	kindTime        unitKind = "time"
)

type unit struct {
	kind unitKind
	// factor converts to the kind's base unit (m, kg, l, s). Unused for temperature.
	factor float64
}

var units = map[string]unit{
	"mm": {kindLength, 0.001},
	"cm": {kindLength, 0.01},
	"m":  {kindLength, 1},
	"km": {kindLength, 1000},
	"in": {kindLength, 0.0254},
	"ft": {kindLength, 0.3048},
	"yd": {kindLength, 0.9144},
	"mi": {kindLength, 1609.344},

	"mg": {kindMass, 1e-6},
	"g":  {kindMass, 0.001},
	"kg": {kindMass, 1},
	"t":  {kindMass, 1000},
	"oz": {kindMass, 0.028349523125},
	"lb": {kindMass, 0.45359237},

	"ml":   {kindVolume, 0.001},
	"l":    {kindVolume, 1},
	"m3":   {kindVolume, 1000},
	"tsp":  {kindVolume, 0.00492892159375},
	"tbsp": {kindVolume, 0.01478676478125},
	"cup":  {kindVolume, 0.2365882365},
	"pt":   {kindVolume, 0.473176473},
	"qt":   {kindVolume, 0.946352946},
	"gal":  {kindVolume, 3.785411784},

	"ms":   {kindTime, 0.001},
	"s":    {kindTime, 1},
	"min":  {kindTime, 60},
	"h":    {kindTime, 3600},
	"day":  {kindTime, 86400},
	"week": {kindTime, 604800},

	"c": {kind: kindTemperature},
	"f": {kind: kindTemperature},
	"k": {kind: kindTemperature},
}

var unitAliases = map[string]string{
	"millimeter": "mm", "centimeter": "cm", "meter": "m", "metre": "m", "kilometer": "km",
	"inch": "in", "inches": "in", "foot": "ft", "feet": "ft", "yard": "yd", "mile": "mi",
	"milligram": "mg", "gram": "g", "kilogram": "kg", "kilo": "kg", "tonne": "t", "ton": "t",
	"ounce": "oz", "pound": "lb", "lbs": "lb",
	"milliliter": "ml", "liter": "l", "litre": "l", "teaspoon": "tsp", "tablespoon": "tbsp",
	"pint": "pt", "quart": "qt", "gallon": "gal",
	"millisecond": "ms", "second": "s", "sec": "s", "minute": "min", "hour": "h", "hr": "h",
	"days": "day", "d": "day", "weeks": "week", "wk": "week",
	"celsius": "c", "°c": "c", "fahrenheit": "f", "°f": "f", "kelvin": "k",
}

type UnitConvertInput struct {
	Value float64 `json:"value" jsonschema:"description=Numeric value to convert"`
	From  string  `json:"from" jsonschema:"description=Source unit such as km or lb or celsius"`
	To    string  `json:"to" jsonschema:"description=Target unit"`
}

type UnitConvertOutput struct {
	Value    float64 `json:"value"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Result   float64 `json:"result"`
	Category string  `json:"category,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func newUnitConvertTool(Deps) (tool.InvokableTool, error) {
	return infer(ToolUnitConvert, unitConvertDesc, convertUnits)
}

func lookupUnit(name string) (string, unit, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, c := range []string{key, strings.TrimSuffix(key, "s")} {
		if alias, ok := unitAliases[c]; ok {
			c = alias
		}
		if u, ok := units[c]; ok {
			return c, u, true
		}
	}
	return key, unit{}, false
}

// ConvertUnit converts value between two units of the same kind.
func ConvertUnit(value float64, from, to string) (float64, string, error) {
	fromKey, fu, ok := lookupUnit(from)
	if !ok {
		return 0, "", fmt.Errorf("unknown unit %q", from)
	}
	toKey, tu, ok := lookupUnit(to)
	if !ok {
		return 0, "", fmt.Errorf("unknown unit %q", to)
	}
	if fu.kind != tu.kind {
		return 0, "", fmt.Errorf("cannot convert %s to %s", fu.kind, tu.kind)
	}
	if fu.kind == kindTemperature {
		return fromKelvin(toKelvin(value, fromKey), toKey), string(fu.kind), nil
	}
	return value * fu.factor / tu.factor, string(fu.kind), nil
}

func toKelvin(v float64, scale string) float64 {
	switch scale {
	case "c":
		return v + 273.15
	case "f":
		return (v-32)*5/9 + 273.15
	}
	return v
}

func fromKelvin(v float64, scale string) float64 {
	switch scale {
	case "c":
		return v - 273.15
	case "f":
		return (v-273.15)*9/5 + 32
	}
	return v
}

func convertUnits(_ context.Context, in *UnitConvertInput) (*UnitConvertOutput, error) {
	out := &UnitConvertOutput{Value: in.Value, From: in.From, To: in.To}
	result, kind, err := ConvertUnit(in.Value, in.From, in.To)
	if err != nil {
		out.Error = err.Error()
		return out, nil
	}
	out.Result = result
	out.Category = kind
	return out, nil
}
