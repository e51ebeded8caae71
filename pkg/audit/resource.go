package audit

import "github.com/valyala/fastjson"

// ResourceName extracts the resource identifier the audit validator
// keys its lookup on, mirroring the extractor's method/params dispatch
// (spec §4.4): tools/call and prompts/get use params.name, resources/read
// uses params.uri, any other method yields "".
func ResourceName(rawPayload string) string {
	var p fastjson.Parser
	v, err := p.Parse(rawPayload)
	if err != nil {
		return ""
	}

	method := v.GetStringBytes("method")
	if method == nil {
		return ""
	}
	params := v.Get("params")
	if params == nil {
		return ""
	}

	switch string(method) {
	case "tools/call", "prompts/get":
		if n := params.GetStringBytes("name"); n != nil {
			return string(n)
		}
	case "resources/read":
		if u := params.GetStringBytes("uri"); u != nil {
			return string(u)
		}
	}
	return ""
}
