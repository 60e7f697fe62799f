package tracing

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

// messagesFromRuns converts root runs into local messages. Each run contributes
// the last user entry of its inputs and the messages of its outputs. Entries are
// role-tagged either as {"type": ...} or {"role": ...}.
func messagesFromRuns(body []byte) []model.Message {
	var out []model.Message
	gjson.GetBytes(body, "runs").ForEach(func(_, run gjson.Result) bool {
		ts := parseTime(run.Get("start_time").String())

		inputs := run.Get("inputs.messages").Array()
		for i := len(inputs) - 1; i >= 0; i-- {
			if m, ok := convertEntry(inputs[i], ts); ok && m.Type == model.MessageHuman {
				out = append(out, m)
				break
			}
		}

		outputs := run.Get("outputs.messages").Array()
		for _, entry := range outputs {
			if m, ok := convertEntry(entry, ts); ok && m.Type != model.MessageHuman {
				out = append(out, m)
			}
		}
		if len(outputs) == 0 {
			if reply := run.Get("outputs.reply").String(); reply != "" {
				out = append(out, model.Message{Type: model.MessageAI, Content: reply, Timestamp: ts})
			}
		}
		return true
	})
	return out
}

func convertEntry(entry gjson.Result, ts time.Time) (model.Message, bool) {
	role := entry.Get("type").String()
	if role == "" {
		role = entry.Get("role").String()
	}
	typ, ok := model.ParseMessageType(role)
	if !ok {
		return model.Message{}, false
	}
	m := model.Message{
		Type:       typ,
		Content:    entry.Get("content").String(),
		Timestamp:  ts,
		ToolCallID: entry.Get("tool_call_id").String(),
	}
	entry.Get("tool_calls").ForEach(func(_, tc gjson.Result) bool {
		name := tc.Get("name").String()
		args := tc.Get("args").String()
		if a := tc.Get("args"); a.IsObject() {
			args = a.Raw
		}
		if name == "" {
			name = tc.Get("function.name").String()
			args = tc.Get("function.arguments").String()
		}
		m.ToolCalls = append(m.ToolCalls, model.ToolCall{ID: tc.Get("id").String(), Name: name, Args: args})
		return true
	})
	return m, true
}

func parseTime(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
