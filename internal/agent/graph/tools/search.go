package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const (
	webSearchDesc        = "Search the web for current information. Returns titles, links and short excerpts."
	maxSearchResults     = 10
	maxSearchExcerptRune = 500
)

type WebSearchInput struct {
	Query      string `json:"query" jsonschema:"description=Search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Number of results to return (1 to 10)"`
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type WebSearchOutput struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

type webSearch struct {
	http *resty.Client
	cfg  model.SearchConfig
}

func newWebSearchTool(deps Deps) (tool.InvokableTool, error) {
	s := &webSearch{http: deps.HTTP, cfg: deps.Search}
	return infer(ToolWebSearch, webSearchDesc, s.search)
}

func (s *webSearch) search(ctx context.Context, in *WebSearchInput) (*WebSearchOutput, error) {
	query := strings.TrimSpace(in.Query)
	out := &WebSearchOutput{Query: query, Results: []SearchResult{}}
	if query == "" {
		out.Error = "query is required"
		return out, nil
	}
	if s.cfg.APIKey == "" {
		out.Error = "web search is not configured (SEARCH_API_KEY)"
		return out, nil
	}

	limit := in.MaxResults
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}
	limit = clampInt(limit, 1, maxSearchResults)

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"api_key":     s.cfg.APIKey,
			"query":       query,
			"max_results": limit,
		}).
		Post(s.cfg.URL)
	if err != nil {
		logx.Warn().Err(err).Str("tool", ToolWebSearch).Msg("search request failed")
		out.Error = "search request failed: " + err.Error()
		return out, nil
	}
	if resp.IsError() {
		out.Error = "search provider returned " + resp.Status()
		return out, nil
	}

	body := gjson.ParseBytes(resp.Body())
	out.Answer = body.Get("answer").String()
	body.Get("results").ForEach(func(_, r gjson.Result) bool {
		out.Results = append(out.Results, SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Content: truncateRunes(strings.TrimSpace(r.Get("content").String()), maxSearchExcerptRune),
		})
		return len(out.Results) < limit
	})
	return out, nil
}
