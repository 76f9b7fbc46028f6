package prismic

import (
	"encoding/json"
	"strings"
)

// ExtractText flattens a text field. Plain strings are returned as is, rich
// text blocks are joined with single spaces and {"text": ...} objects yield
// their text. Anything else is empty.
func ExtractText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '[':
		var blocks []json.RawMessage
		if json.Unmarshal(raw, &blocks) != nil {
			return ""
		}
		parts := make([]string, 0, len(blocks))
		for _, block := range blocks {
			parts = append(parts, blockText(block))
		}
		return strings.Join(parts, " ")
	case '{':
		return blockText(raw)
	}
	return ""
}

func blockText(raw json.RawMessage) string {
	var block struct {
		Text *string `json:"text"`
	}
	if json.Unmarshal(raw, &block) != nil || block.Text == nil {
		return ""
	}
	return *block.Text
}
