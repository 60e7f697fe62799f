package parsers

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

// maxRouteReply bounds how much of the router reply is inspected.
const maxRouteReply = 512

type keywordRule struct {
	category model.ToolCategory
	pattern  *regexp.Regexp
}

// Evaluated in order; the first match wins.
var keywordRules = []keywordRule{
	{model.CategoryHTTP, regexp.MustCompile(`(?i)https?://|\b(?:http|get|post|put|patch|delete)\s+request\b|\b(?:endpoint|status code)\b`)},
	{model.CategoryAuth, regexp.MustCompile(`(?i)\b(?:log\s?in|log\s?out|sign\s?in|sign\s?out|logged in|my account|my (?:items|orders))\b`)},
	{model.CategoryUnits, regexp.MustCompile(`(?i)\b(?:convert|conversion)\b|\d\s*(?:km|mi|miles?|m|cm|mm|ft|feet|inch(?:es)?|kg|g|lbs?|pounds?|oz|l|ml|gal(?:lons?)?|°?[cfk]|celsius|fahrenheit|kelvin)\s+(?:to|in|into)\b`)},
	{model.CategoryCalculator, regexp.MustCompile(`(?i)\b(?:calculate|compute|evaluate|sum of|square root)\b|\d\s*[-+*/^%]\s*\(?\s*\d`)},
	{model.CategoryText, regexp.MustCompile(`(?i)\b(?:upper\s?case|lower\s?case|title\s?case|capitali[sz]e|reverse|slug(?:ify)?|word count|character count|count (?:the )?(?:words|characters))\b`)},
	{model.CategorySearch, regexp.MustCompile(`(?i)\b(?:search|look up|google|latest|news|current(?:ly)?|today|recent)\b`)},
}

var routeTokenTrim = "\"'`*.:;,!()[]{}<> \t\r\n"

// ParseRoute turns the router model's reply into a category. A reply that is
// not exactly one known category falls back to keyword matching over the
// user's text, then to general.
func ParseRoute(llmText, userText string) model.Route {
	if c, ok := categoryFromReply(llmText); ok {
		return model.Route{Category: c, Source: model.RouteFromModel}
	}
	if c, ok := ClassifyKeywords(userText); ok {
		logx.Debug().Str("reply", truncate(llmText, 80)).Str("category", string(c)).Msg("router reply unusable; matched keywords")
		return model.Route{Category: c, Source: model.RouteFromKeywords}
	}
	logx.Debug().Str("reply", truncate(llmText, 80)).Msg("router reply unusable; falling back to general")
	return model.Route{Category: model.CategoryGeneral, Source: model.RouteFallback}
}

func categoryFromReply(text string) (model.ToolCategory, bool) {
	text = strings.TrimSpace(truncate(text, maxRouteReply))
	if text == "" {
		return "", false
	}
	if strings.HasPrefix(text, "{") {
		if v := gjson.Get(text, "category"); v.Exists() {
			return model.ParseToolCategory(v.String())
		}
	}
	line, _, _ := strings.Cut(text, "\n")
	line = strings.Trim(line, routeTokenTrim)
	if k, v, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(k), "category") {
		line = strings.Trim(v, routeTokenTrim)
	}
	return model.ParseToolCategory(line)
}

// ClassifyKeywords maps user text to a tool category by keyword.
func ClassifyKeywords(text string) (model.ToolCategory, bool) {
	for _, rule := range keywordRules {
		if rule.pattern.MatchString(text) {
			return rule.category, true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
