package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/chatcli/internal/core/error"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("tracing is not configured")

// Client talks to a LangSmith-compatible trace store.
type Client struct {
	http    *resty.Client
	project string
}

func NewClient(cfg model.TracingConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.smith.langchain.com"
	}

	c := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{http: c, project: cfg.Project}, nil
}

type RunInput struct {
	ID       string
	Name     string
	ThreadID string
	Inputs   map[string]any
}

// StartRun opens a root chain run for one workflow invocation.
func (c *Client) StartRun(ctx context.Context, in RunInput) error {
	body := map[string]any{
		"id":           in.ID,
		"trace_id":     in.ID,
		"name":         in.Name,
		"run_type":     "chain",
		"inputs":       in.Inputs,
		"start_time":   time.Now().UTC().Format(time.RFC3339Nano),
		"session_name": c.project,
		"extra": map[string]any{
			"metadata": map[string]any{"thread_id": in.ThreadID},
		},
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/runs")
	return checkResponse(resp, err, "start run")
}

// EndRun closes a run with its outputs or an error text.
func (c *Client) EndRun(ctx context.Context, id string, outputs map[string]any, errText string) error {
	body := map[string]any{
		"end_time": time.Now().UTC().Format(time.RFC3339Nano),
		"outputs":  outputs,
	}
	if errText != "" {
		body["error"] = errText
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetPathParam("id", id).Patch("/runs/{id}")
	return checkResponse(resp, err, "end run")
}

type FeedbackInput struct {
	RunID    string
	Key      string
	Score    float64
	Value    int
	Comment  string
	Metadata map[string]any
}

// CreateFeedback attaches feedback to a run and returns the remote record id.
func (c *Client) CreateFeedback(ctx context.Context, in FeedbackInput) (string, error) {
	body := map[string]any{
		"run_id":  in.RunID,
		"key":     in.Key,
		"score":   in.Score,
		"value":   in.Value,
		"comment": in.Comment,
		"feedback_source": map[string]any{
			"type":     "app",
			"metadata": in.Metadata,
		},
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/feedback")
	if err := checkResponse(resp, err, "create feedback"); err != nil {
		return "", err
	}

	id := gjson.GetBytes(resp.Body(), "id").String()
	if id == "" {
		return "", errx.WrapRemote(fmt.Errorf("create feedback: response has no id"), http.StatusBadGateway)
	}
	return id, nil
}

// ThreadMessages rebuilds a conversation from the root runs recorded for a thread.
func (c *Client) ThreadMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	body := map[string]any{
		"filter":  fmt.Sprintf(`and(eq(metadata_key, "thread_id"), eq(metadata_value, %q))`, threadID),
		"is_root": true,
		"select":  []string{"inputs", "outputs", "start_time"},
		"order":   "asc",
		"limit":   100,
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/runs/query")
	if err := checkResponse(resp, err, "query thread runs"); err != nil {
		return nil, err
	}
	msgs := messagesFromRuns(resp.Body())
	logx.Debug().Str("thread_id", threadID).Int("messages", len(msgs)).Msg("fetched remote thread")
	return msgs, nil
}

func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return errx.WrapRemote(fmt.Errorf("%s: %w", op, err), 0)
	}
	if resp.IsError() {
		return errx.WrapRemote(fmt.Errorf("%s: %s: %s", op, resp.Status(), truncate(resp.String(), 200)), resp.StatusCode())
	}
	return nil
}

// truncate cuts s to at most n bytes, backing off to a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
