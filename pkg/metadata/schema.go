package metadata

import (
	"fmt"
	"sort"
	"strings"
)

const maxSchemaDepth = 5

// FlattenSchema renders a tool's JSON-schema input shape into the flat
// "name=description | ..." string the metadata audit prompt embeds
// (spec §4.9). An empty or unparsable schema yields "(none)".
func FlattenSchema(schema map[string]interface{}) string {
	if schema == nil {
		return "(none)"
	}
	props, _ := schema["properties"].(map[string]interface{})
	segments := flattenProperties(props, "", 0)
	if len(segments) == 0 {
		return "(none)"
	}
	return strings.Join(segments, " | ")
}

func flattenProperties(props map[string]interface{}, prefix string, depth int) []string {
	if len(props) == 0 || depth > maxSchemaDepth {
		return nil
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var segments []string
	for _, name := range names {
		propRaw, ok := props[name].(map[string]interface{})
		if !ok {
			continue
		}
		fullName := name
		if prefix != "" {
			fullName = prefix + name
		}

		description, _ := propRaw["description"].(string)
		if description == "" {
			description = "No description"
		}
		segments = append(segments, fmt.Sprintf("%s=%s", fullName, description))

		if depth >= maxSchemaDepth {
			continue
		}

		propType, _ := propRaw["type"].(string)
		switch propType {
		case "object":
			if nested, ok := propRaw["properties"].(map[string]interface{}); ok {
				segments = append(segments, flattenProperties(nested, fullName+".", depth+1)...)
			}
		case "array":
			if items, ok := propRaw["items"].(map[string]interface{}); ok {
				if nested, ok := items["properties"].(map[string]interface{}); ok {
					segments = append(segments, flattenProperties(nested, fullName+"[].", depth+1)...)
				}
			}
		}
	}
	return segments
}
