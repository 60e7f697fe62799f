package tools

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/go-resty/resty/v2"
)

const (
	httpRequestDesc = "Send an HTTP request to a public URL and return the status and the start of the response body."
	maxResponseBody = 4096
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

type HTTPRequestInput struct {
	Method  string            `json:"method,omitempty" jsonschema:"description=HTTP method: GET POST PUT PATCH or DELETE. Defaults to GET"`
	URL     string            `json:"url" jsonschema:"description=Absolute http or https URL"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"description=Extra request headers"`
	Body    string            `json:"body,omitempty" jsonschema:"description=Raw request body"`
}

type HTTPRequestOutput struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	Truncated   bool   `json:"truncated,omitempty"`
	Error       string `json:"error,omitempty"`
}

type httpRequester struct {
	http *resty.Client
}

func newHTTPRequestTool(deps Deps) (tool.InvokableTool, error) {
	h := &httpRequester{http: deps.HTTP}
	return infer(ToolHTTPRequest, httpRequestDesc, h.do)
}

func (h *httpRequester) do(ctx context.Context, in *HTTPRequestInput) (*HTTPRequestOutput, error) {
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return &HTTPRequestOutput{Error: "unsupported method " + method}, nil
	}
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &HTTPRequestOutput{Error: "url must be an absolute http or https URL"}, nil
	}

	req := h.http.R().SetContext(ctx).SetHeaders(in.Headers)
	if in.Body != "" {
		req.SetBody(in.Body)
	}
	resp, err := req.Execute(method, u.String())
	if err != nil {
		return &HTTPRequestOutput{Error: "request failed: " + err.Error()}, nil
	}

	body := string(resp.Body())
	out := &HTTPRequestOutput{
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        truncate(body, maxResponseBody),
		Truncated:   len(body) > maxResponseBody,
	}
	return out, nil
}
