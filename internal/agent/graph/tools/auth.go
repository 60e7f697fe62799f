package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

type AuthLoginInput struct {
	Username string `json:"username" jsonschema:"description=Account username or email"`
	Password string `json:"password" jsonschema:"description=Account password"`
}

type AuthResult struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	LoggedIn  bool           `json:"logged_in"`
	User      map[string]any `json:"user,omitempty"`
	LastLogin *time.Time     `json:"last_login,omitempty"`
}

type AuthStatusInput struct{}

type AuthListItemsInput struct {
	Resource string `json:"resource" jsonschema:"description=Name of the collection to list such as items or orders"`
}

type AuthListItemsOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
	Items   any    `json:"items,omitempty"`
}

const (
	authLoginDesc     = "Log in to the user's account on the configured backend. Stores the session locally for later calls."
	authStatusDesc    = "Report whether the user is logged in and who they are."
	authLogoutDesc    = "Log out of the backend and clear the local session."
	authListItemsDesc = "List a resource from the backend on behalf of the logged-in user. Requires a prior login."
)

type authTools struct {
	http    *resty.Client
	baseURL string
	repo    model.AuthRepository
	now     func() time.Time
}

func newAuthTools(deps Deps) *authTools {
	return &authTools{
		http:    deps.HTTP,
		baseURL: strings.TrimRight(deps.Auth.BaseURL, "/"),
		repo:    deps.AuthRepo,
		now:     time.Now,
	}
}

func newAuthLoginTool(deps Deps) (tool.InvokableTool, error) {
	return infer(ToolAuthLogin, authLoginDesc, newAuthTools(deps).login)
}

func newAuthStatusTool(deps Deps) (tool.InvokableTool, error) {
	return infer(ToolAuthStatus, authStatusDesc, newAuthTools(deps).status)
}

func newAuthLogoutTool(deps Deps) (tool.InvokableTool, error) {
	return infer(ToolAuthLogout, authLogoutDesc, newAuthTools(deps).logout)
}

func newAuthListItemsTool(deps Deps) (tool.InvokableTool, error) {
	return infer(ToolAuthListItems, authListItemsDesc, newAuthTools(deps).listItems)
}

func (a *authTools) login(ctx context.Context, in *AuthLoginInput) (*AuthResult, error) {
	if a.repo == nil {
		return &AuthResult{Message: "auth is not configured"}, nil
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return &AuthResult{Message: "username and password are required"}, nil
	}

	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": in.Password}).
		Post(a.baseURL + "/login")
	if err != nil {
		logx.Warn().Err(err).Str("tool", ToolAuthLogin).Msg("login request failed")
		return &AuthResult{Message: "could not reach the auth backend: " + err.Error()}, nil
	}
	if resp.IsError() {
		return &AuthResult{Message: "login rejected: " + resp.Status()}, nil
	}

	body := gjson.ParseBytes(resp.Body())
	token := firstString(body, "token", "access_token", "data.token", "data.access_token")

	user := map[string]any{}
	if u := firstResult(body, "user", "data.user"); u.IsObject() {
		_ = json.Unmarshal([]byte(u.Raw), &user)
	}
	if len(user) == 0 {
		user["username"] = username
	}

	cookies := map[string]string{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}

	now := a.now().UTC()
	data := &model.AuthData{
		IsLoggedIn:    true,
		Cookies:       cookies,
		Token:         token,
		UserData:      user,
		LastLoginTime: &now,
	}
	if err := a.repo.Save(ctx, data); err != nil {
		logx.Warn().Err(err).Msg("failed to persist auth session")
	}

	return &AuthResult{Success: true, Message: "logged in", LoggedIn: true, User: user, LastLogin: &now}, nil
}

func (a *authTools) status(ctx context.Context, _ *AuthStatusInput) (*AuthResult, error) {
	data := a.session(ctx)
	if !data.IsLoggedIn {
		return &AuthResult{Success: true, Message: "not logged in"}, nil
	}
	return &AuthResult{
		Success:   true,
		Message:   "logged in",
		LoggedIn:  true,
		User:      data.UserData,
		LastLogin: data.LastLoginTime,
	}, nil
}

func (a *authTools) logout(ctx context.Context, _ *AuthStatusInput) (*AuthResult, error) {
	data := a.session(ctx)
	if data.IsLoggedIn {
		resp, err := a.authorized(ctx, data).Post(a.baseURL + "/logout")
		if err != nil || resp.IsError() {
			logx.Debug().Err(err).Msg("remote logout failed; clearing local session anyway")
		}
	}
	if a.repo != nil {
		if err := a.repo.Clear(ctx); err != nil {
			return &AuthResult{Message: "failed to clear local session: " + err.Error()}, nil
		}
	}
	return &AuthResult{Success: true, Message: "logged out"}, nil
}

func (a *authTools) listItems(ctx context.Context, in *AuthListItemsInput) (*AuthListItemsOutput, error) {
	data := a.session(ctx)
	if !data.IsLoggedIn {
		return &AuthListItemsOutput{Message: "not logged in; call auth_login first"}, nil
	}
	resource := strings.TrimSpace(in.Resource)
	if resource == "" {
		resource = "items"
	}

	resp, err := a.authorized(ctx, data).
		SetQueryParam("resource", resource).
		Get(a.baseURL + "/list")
	if err != nil {
		return &AuthListItemsOutput{Message: "request failed: " + err.Error()}, nil
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return &AuthListItemsOutput{Status: resp.StatusCode(), Message: "session expired; log in again"}, nil
	}
	if resp.IsError() {
		return &AuthListItemsOutput{Status: resp.StatusCode(), Message: "backend error: " + resp.Status()}, nil
	}

	var items any
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		items = truncate(string(resp.Body()), maxResponseBody)
	}
	return &AuthListItemsOutput{Success: true, Status: resp.StatusCode(), Items: items}, nil
}

func (a *authTools) session(ctx context.Context) *model.AuthData {
	if a.repo == nil {
		return model.DefaultAuthData()
	}
	data, err := a.repo.Load(ctx)
	if err != nil || data == nil {
		return model.DefaultAuthData()
	}
	return data
}

func (a *authTools) authorized(ctx context.Context, data *model.AuthData) *resty.Request {
	req := a.http.R().SetContext(ctx)
	if data.Token != "" {
		req.SetAuthToken(data.Token)
	}
	for name, value := range data.Cookies {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func firstResult(body gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := body.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(body gjson.Result, paths ...string) string {
	return firstResult(body, paths...).String()
}
