package model

import "strings"

// ToolCategory is the closed set of routes a turn can take through the workflow.
type ToolCategory string

const (
	CategoryAuth       ToolCategory = "auth"
	CategorySearch     ToolCategory = "search"
	CategoryHTTP       ToolCategory = "http"
	CategoryCalculator ToolCategory = "calculator"
	CategoryText       ToolCategory = "text"
	CategoryUnits      ToolCategory = "units"
	// CategoryGeneral is the fallback: answer directly without tools.
	CategoryGeneral ToolCategory = "general"
)

// ToolCategories lists every category in prompt order.
var ToolCategories = []ToolCategory{
	CategoryAuth,
	CategorySearch,
	CategoryHTTP,
	CategoryCalculator,
	CategoryText,
	CategoryUnits,
	CategoryGeneral,
}

// ParseToolCategory matches a category name exactly (case-insensitive).
func ParseToolCategory(v string) (ToolCategory, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, c := range ToolCategories {
		if string(c) == v {
			return c, true
		}
	}
	return "", false
}

// UsesTools reports whether the category runs the tool-calling branch.
func (c ToolCategory) UsesTools() bool {
	return c != CategoryGeneral
}

// RouteSource records which classifier produced a route.
type RouteSource string

const (
	RouteFromModel    RouteSource = "model"
	RouteFromKeywords RouteSource = "keywords"
	RouteFallback     RouteSource = "fallback"
)

type Route struct {
	Category ToolCategory
	Source   RouteSource
}
