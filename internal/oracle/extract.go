package oracle

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls a JSON object out of free-form model output. It tries the
// raw text, then a fenced code block, then the outermost braces. Total failure
// yields an empty, non-nil map.
func ExtractJSON(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if out, ok := decodeObject(raw); ok {
		return out
	}
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		if out, ok := decodeObject(m[1]); ok {
			return out
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if out, ok := decodeObject(raw[start : end+1]); ok {
			return out
		}
	}
	return map[string]any{}
}

func decodeObject(text string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// stringField returns a trimmed string value, treating JSON null and the
// literal "null" as absent.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
			return ""
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

var leadingDigits = regexp.MustCompile(`\d+`)

// intField accepts a JSON number or a string such as "35" or "35 years".
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		if v <= 0 || v > math.MaxInt32 || v != math.Trunc(v) {
			return 0
		}
		return int(v)
	case string:
		digits := leadingDigits.FindString(v)
		if digits == "" {
			return 0
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
