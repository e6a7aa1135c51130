package alerting

import (
	"fmt"
	"strings"
)

// FlattenContext recursively flattens a nested context into dot-path keys:
// {"a": {"b": 1}} becomes {"a.b": 1}. Non-map values are kept as-is.
func FlattenContext(ctx map[string]any) map[string]any {
	flat := make(map[string]any, len(ctx))
	flattenInto(flat, "", ctx)
	return flat
}

func flattenInto(flat map[string]any, prefix string, value map[string]any) {
	for key, val := range value {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(flat, path, nested)
			continue
		}
		flat[path] = val
	}
}

// RenderTemplate substitutes {dot.path} placeholders with values from the
// flattened context. Placeholders with no matching key are left verbatim so a
// template referencing an unavailable field still produces readable output.
func RenderTemplate(template string, ctx map[string]any) string {
	if template == "" || !strings.Contains(template, "{") {
		return template
	}
	flat := FlattenContext(ctx)
	pairs := make([]string, 0, len(flat)*2)
	for path, val := range flat {
		pairs = append(pairs, "{"+path+"}", fmt.Sprintf("%v", val))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
