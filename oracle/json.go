package oracle

import "strings"

// extractJSON pulls the JSON body out of a model response, stripping a
// markdown code fence when present.
func extractJSON(s string) string {
	if start := strings.Index(s, "```json"); start != -1 {
		start += 7
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}
	if start := strings.Index(s, "```"); start != -1 {
		start += 3
		if end := strings.Index(s[start:], "```"); end != -1 {
			content := strings.TrimSpace(s[start : start+end])
			// Drop a language tag line, but never the JSON itself.
			if idx := strings.Index(content, "\n"); idx != -1 && !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
				content = content[idx+1:]
			}
			return strings.TrimSpace(content)
		}
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	// Unfenced response with surrounding prose: take the outermost
	// object literal.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return trimmed
}
