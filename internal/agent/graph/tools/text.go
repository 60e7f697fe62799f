package tools

import (
	"context"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
)

const textTransformDesc = "Transform text. Operations: upper lower title reverse trim word_count char_count slug."

type TextTransformInput struct {
	Operation string `json:"operation" jsonschema:"description=One of upper lower title reverse trim word_count char_count slug"`
	Text      string `json:"text" jsonschema:"description=Input text"`
}

type TextTransformOutput struct {
	Operation string `json:"operation"`
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
}

var textOps = map[string]func(string) string{
	"upper":      strings.ToUpper,
	"lower":      strings.ToLower,
	"title":      titleCase,
	"reverse":    reverseRunes,
	"trim":       strings.TrimSpace,
	"word_count": func(s string) string { return strconv.Itoa(len(strings.Fields(s))) },
	"char_count": func(s string) string { return strconv.Itoa(utf8.RuneCountInString(s)) },
	"slug":       slugify,
}

func newTextTransformTool(Deps) (tool.InvokableTool, error) {
	return infer(ToolTextTransform, textTransformDesc, transformText)
}

// TransformText applies a named operation.
func TransformText(op, text string) (string, bool) {
	op = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(op)), "-", "_")
	fn, ok := textOps[op]
	if !ok {
		return "", false
	}
	return fn(text), true
}

func transformText(_ context.Context, in *TextTransformInput) (*TextTransformOutput, error) {
	out := &TextTransformOutput{Operation: in.Operation}
	result, ok := TransformText(in.Operation, in.Text)
	if !ok {
		out.Error = "unknown operation " + strconv.Quote(in.Operation)
		return out, nil
	}
	out.Result = result
	return out, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
