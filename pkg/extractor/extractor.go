// Package extractor implements the MCP-aware payload extractor (spec
// §4.2): it turns one raw JSON-RPC payload into a single scannable
// string, or signals "skip scanning" for safe protocol methods. It is
// pure — it never touches a Policy or an AuditPolicy.
package extractor

import (
	"fmt"
	"strings"

	"github.com/valyala/fastjson"
)

// SafeMethods are protocol-layer methods exempt from content scanning.
var SafeMethods = map[string]struct{}{
	"initialize":                {},
	"initialized":               {},
	"ping":                      {},
	"$/cancelRequest":           {},
	"$/progress":                {},
	"notifications/initialized": {},
	"notifications/cancelled":   {},
	"notifications/progress":    {},
}

// IsSafeMethod reports whether m is exempt from scanning.
func IsSafeMethod(m string) bool {
	_, ok := SafeMethods[m]
	return ok
}

// MethodAndToolName parses payload just far enough to learn the JSON-RPC
// method and, for a tools/call request, the tool name under params.name.
// Malformed JSON or a missing method yields two empty strings.
func MethodAndToolName(payload string) (method, toolName string) {
	var p fastjson.Parser
	v, err := p.Parse(payload)
	if err != nil {
		return "", ""
	}
	if m := v.GetStringBytes("method"); m != nil {
		method = string(m)
	}
	if method == "tools/call" {
		if params := v.Get("params"); params != nil {
			if n := params.GetStringBytes("name"); n != nil {
				toolName = string(n)
			}
		}
	}
	return method, toolName
}

// Extract runs the algorithm of spec §4.2 against payload, returning the
// scannable string. An empty return value (for a non-empty input) means
// "safe method, skip scanning" — callers must distinguish that from a
// genuinely empty payload upstream, same as the orchestrator does.
func Extract(payload string) string {
	var p fastjson.Parser
	v, err := p.Parse(payload)
	if err != nil {
		return payload
	}

	method := v.GetStringBytes("method")
	if method == nil {
		return payload
	}
	methodStr := string(method)

	if IsSafeMethod(methodStr) {
		return ""
	}

	params := v.Get("params")
	if params == nil {
		return payload
	}

	switch methodStr {
	case "tools/call":
		return extractToolCall(params)
	case "sampling/createMessage", "prompts/get":
		return extractMessages(params, payload)
	case "resources/read":
		return extractResourceRead(params)
	default:
		return fmt.Sprintf("[%s]", jsonOf(params))
	}
}

func extractToolCall(params *fastjson.Value) string {
	name := ""
	if n := params.GetStringBytes("name"); n != nil {
		name = string(n)
	}
	args := params.Get("arguments")
	argsJSON := "{}"
	if args != nil {
		argsJSON = jsonOf(args)
	}
	return fmt.Sprintf("Tool: %s\nArguments:\n%s\nContext:\norigin: mcp_call", name, argsJSON)
}

func extractMessages(params *fastjson.Value, originalPayload string) string {
	var parts []string

	for _, m := range params.GetArray("messages") {
		content := m.Get("content")
		if content == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf(`{"_message_content":%s}`, jsonOf(content)))
	}

	if prompt := params.Get("prompt"); prompt != nil {
		parts = append(parts, fmt.Sprintf(`{"_prompt":%s}`, jsonOf(prompt)))
	}

	if len(parts) == 0 {
		return originalPayload
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func extractResourceRead(params *fastjson.Value) string {
	uri := params.Get("uri")
	return fmt.Sprintf(`[{"_resource_uri":%s}]`, jsonOf(uri))
}

// jsonOf renders v as its JSON text, or "null" for a nil value.
func jsonOf(v *fastjson.Value) string {
	if v == nil {
		return "null"
	}
	return string(v.MarshalTo(nil))
}
