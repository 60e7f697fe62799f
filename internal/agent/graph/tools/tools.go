package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/go-resty/resty/v2"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

const (
	ToolAuthLogin     = "auth_login"
	ToolAuthStatus    = "auth_status"
	ToolAuthLogout    = "auth_logout"
	ToolAuthListItems = "auth_list_items"
	ToolWebSearch     = "web_search"
	ToolHTTPRequest   = "http_request"
	ToolCalculator    = "calculator"
	ToolTextTransform = "text_transform"
	ToolUnitConvert   = "unit_convert"
)

const defaultHTTPTimeout = 20 * time.Second

// Deps carries what the networked tools need.
type Deps struct {
	HTTP     *resty.Client
	Auth     model.AuthConfig
	AuthRepo model.AuthRepository
	Search   model.SearchConfig
}

type toolFactory func(Deps) (tool.InvokableTool, error)

var factories = []toolFactory{
	newAuthLoginTool,
	newAuthStatusTool,
	newAuthLogoutTool,
	newAuthListItemsTool,
	newWebSearchTool,
	newHTTPRequestTool,
	newCalculatorTool,
	newTextTransformTool,
	newUnitConvertTool,
}

// GetQueryTools builds every tool the tool branch can call.
func GetQueryTools(deps Deps) ([]tool.BaseTool, error) {
	if deps.HTTP == nil {
		deps.HTTP = resty.New().SetTimeout(defaultHTTPTimeout)
	}
	out := make([]tool.BaseTool, 0, len(factories))
	for _, f := range factories {
		t, err := f(deps)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// GetToolInfos collects tool schemas for binding to a chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CategoryTools lists the tools a route is expected to use.
func CategoryTools(category model.ToolCategory) []string {
	switch category {
	case model.CategoryAuth:
		return []string{ToolAuthLogin, ToolAuthStatus, ToolAuthLogout, ToolAuthListItems}
	case model.CategorySearch:
		return []string{ToolWebSearch}
	case model.CategoryHTTP:
		return []string{ToolHTTPRequest}
	case model.CategoryCalculator:
		return []string{ToolCalculator}
	case model.CategoryText:
		return []string{ToolTextTransform}
	case model.CategoryUnits:
		return []string{ToolUnitConvert}
	}
	return nil
}

// infer keeps the InferTool call sites short.
func infer[I, O any](name, desc string, fn func(context.Context, I) (O, error)) (tool.InvokableTool, error) {
	t, err := utils.InferTool(name, desc, fn)
	if err != nil {
		return nil, fmt.Errorf("build %s tool: %w", name, err)
	}
	return t, nil
}
