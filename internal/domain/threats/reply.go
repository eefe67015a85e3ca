package threats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const defaultRationale = "No rationale provided"

// ParseAnalysisReply converts a raw model reply into sanitized results.
// The reply is untrusted: it may be fenced in a markdown code block,
// and every field of every element may be missing or the wrong type.
// Each element is sanitized independently; a bad severity does not
// invalidate the element's threat type, and a non-object element
// degrades to a fully defaulted record without touching its
// neighbors. Only a reply that fails to parse as a JSON array at all
// returns an error.
func ParseAnalysisReply(raw string) ([]AnalysisResult, error) {
	text := stripFence(raw)

	var parsed []any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse analysis reply: %w", err)
	}

	out := make([]AnalysisResult, 0, len(parsed))
	for _, el := range parsed {
		obj, _ := el.(map[string]any)
		out = append(out, sanitizeResult(obj))
	}
	return out, nil
}

// stripFence unwraps a ```-fenced block, tolerating a language tag
// after the opening marker. Without a matching closing marker the
// trimmed input is returned as-is.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	rest := text[len("```"):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimLeft(rest, "`")
	}
	end := strings.LastIndex(rest, "```")
	if end < 0 {
		return text
	}
	return strings.TrimSpace(rest[:end])
}

func sanitizeResult(el map[string]any) AnalysisResult {
	return AnalysisResult{
		ID:                sanitizeID(el["id"]),
		SeverityScore:     sanitizeSeverity(el["severityScore"]),
		ThreatType:        sanitizeThreatType(el["threatType"]),
		Urgency:           sanitizeUrgency(el["urgency"]),
		AffectedVendors:   sanitizeStringList(el["affectedVendors"]),
		AffectedSystems:   sanitizeStringList(el["affectedSystems"]),
		AffectedProtocols: sanitizeStringList(el["affectedProtocols"]),
		Rationale:         sanitizeRationale(el["rationale"]),
	}
}

// sanitizeID passes string ids through untouched. Anything else the
// model supplied is rendered to its string form so identity survives
// the typed boundary.
func sanitizeID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func sanitizeSeverity(v any) int {
	score := 5.0
	switch n := v.(type) {
	case float64:
		if !math.IsNaN(n) {
			score = n
		}
	case json.Number:
		if f, err := n.Float64(); err == nil {
			score = f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			score = f
		}
	}
	s := int(math.Round(score))
	if s < 1 {
		s = 1
	}
	if s > 10 {
		s = 10
	}
	return s
}

func sanitizeThreatType(v any) ThreatType {
	if s, ok := v.(string); ok && validThreatType(s) {
		return ThreatType(s)
	}
	return TypeOther
}

func sanitizeUrgency(v any) Urgency {
	if s, ok := v.(string); ok && validUrgency(s) {
		return Urgency(s)
	}
	return UrgencyEmerging
}

// sanitizeStringList keeps sequences as supplied, with no per-element
// validation beyond rendering non-strings. Anything that is not a
// sequence collapses to an empty one.
func sanitizeStringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(el))
	}
	return out
}

func sanitizeRationale(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return defaultRationale
}
