package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Pre-compiled regex patterns for JSON extraction from model output.
var (
	// fencePattern matches a markdown code block with optional language tag.
	fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \\t]*\\n?(.*?)```")
	// jsonBlockPattern matches JSON objects inside markdown code blocks.
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// jsonArrayBlockPattern matches JSON arrays inside markdown code blocks.
	jsonArrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// jsonArrayPattern matches any JSON array (greedy fallback).
	jsonArrayPattern = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Normalize prepares raw model output for JSON parsing. The process may
// return the payload directly, wrap it in a {"result": "<string>"} envelope,
// or fence either form in a markdown code block. Normalize strips fences,
// unwraps the envelope when present (the inner string may itself be fenced),
// and returns the first JSON object or array, cleaned of trailing commas and
// line comments. Returns "" when no JSON can be recovered.
func Normalize(content string) string {
	candidate := extractAny(strings.TrimSpace(content))
	if candidate == "" {
		return ""
	}
	if inner, ok := unwrapEnvelope(candidate); ok {
		return extractAny(strings.TrimSpace(inner))
	}
	return candidate
}

// StripFences removes a surrounding markdown code block (with optional
// language tag) and trims whitespace. Content without fences passes through.
func StripFences(content string) string {
	if matches := fencePattern.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(content)
}

// unwrapEnvelope detects the {"result": "<string>"} envelope the model
// process emits in JSON output mode. The inner string is the real payload.
func unwrapEnvelope(candidate string) (string, bool) {
	var envelope struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal([]byte(candidate), &envelope); err != nil {
		return "", false
	}
	if envelope.Result == nil {
		return "", false
	}
	return *envelope.Result, true
}

// extractAny extracts whichever of a JSON object or array appears first.
func extractAny(content string) string {
	objIdx := strings.Index(content, "{")
	arrIdx := strings.Index(content, "[")
	if objIdx == -1 && arrIdx == -1 {
		return ""
	}
	if arrIdx == -1 || (objIdx != -1 && objIdx < arrIdx) {
		return ExtractJSON(content)
	}
	return ExtractJSONArray(content)
}

// ExtractJSON extracts a JSON object from a model response string.
// It handles markdown code blocks, JavaScript-style comments, and trailing commas.
func ExtractJSON(content string) string {
	raw := extractRawJSON(content)
	if raw == "" {
		return ""
	}
	return cleanJSON(raw)
}

// ExtractJSONArray extracts a JSON array from a model response string.
func ExtractJSONArray(content string) string {
	// Try markdown code block first
	if matches := jsonArrayBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return cleanJSON(matches[1])
	}
	// Fallback to raw array
	if matches := jsonArrayPattern.FindString(content); matches != "" {
		return cleanJSON(matches)
	}
	return ""
}

// extractRawJSON extracts raw JSON content before cleaning.
func extractRawJSON(content string) string {
	// Try markdown code block first
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	// Fallback to raw JSON object
	if matches := jsonObjectPattern.FindString(content); matches != "" {
		return matches
	}
	return ""
}

// cleanJSON removes JavaScript-style comments and trailing commas from JSON.
// Models commonly produce these invalid JSON artifacts.
func cleanJSON(raw string) string {
	// Remove // comments that are NOT inside JSON string values.
	// Strategy: process line by line, only strip comments outside of strings.
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	// Remove trailing commas before } or ]
	result = trailingCommaPattern.ReplaceAllString(result, "$1")

	return result
}

// stripLineComment removes a // comment from a JSON line, respecting string values.
// For example:
//
//	"merchant": "Swiggy",       // This is a comment  → "merchant": "Swiggy",
//	"url": "http://example.com" // comment             → "url": "http://example.com"
//	"url": "http://example.com"                        → "url": "http://example.com" (no change)
func stripLineComment(line string) string {
	// Fast path: no // at all
	if !strings.Contains(line, "//") {
		return line
	}

	// Walk the line character by character, tracking whether we're inside a string.
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			// Found a comment outside a string — strip from here
			trimmed := strings.TrimRight(line[:i], " \t")
			return trimmed
		}
	}
	return line
}
