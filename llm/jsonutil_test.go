package llm

import (
	"encoding/json"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string // if non-empty, check this key exists in parsed JSON
		wantErr bool
	}{
		{
			name:    "bare JSON payload",
			input:   `{"category": "Food", "confidence": 0.9}`,
			wantKey: "category",
		},
		{
			name:    "result envelope",
			input:   `{"type": "result", "result": "{\"category\": \"Food\", \"confidence\": 0.9}"}`,
			wantKey: "category",
		},
		{
			name:    "fenced payload",
			input:   "```json\n{\"category\": \"Food\"}\n```",
			wantKey: "category",
		},
		{
			name:    "envelope with fenced inner payload",
			input:   `{"result": "` + "```json\\n{\\\"category\\\": \\\"Food\\\"}\\n```" + `"}`,
			wantKey: "category",
		},
		{
			name:    "envelope with prose around inner JSON",
			input:   `{"result": "Here is the categorization:\n{\"category\": \"Food\", \"confidence\": 0.8}"}`,
			wantKey: "category",
		},
		{
			name:    "prose around bare payload",
			input:   "Sure, here you go:\n{\"category\": \"Food\"}\nLet me know if you need anything else.",
			wantKey: "category",
		},
		{
			name:    "trailing commas cleaned",
			input:   `{"items": ["one", "two",],}`,
			wantKey: "items",
		},
		{
			name:    "envelope with no JSON inside",
			input:   `{"result": "I could not find any transactions."}`,
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "This is just text.",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.input)

			if tt.wantErr {
				if result != "" {
					t.Errorf("expected empty result, got: %s", result)
				}
				return
			}

			if result == "" {
				t.Fatal("expected JSON result, got empty string")
			}

			var parsed map[string]any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v\nresult: %s", err, result)
			}

			if tt.wantKey != "" {
				if _, ok := parsed[tt.wantKey]; !ok {
					t.Errorf("expected key %q in parsed JSON, got keys: %v", tt.wantKey, keysOf(parsed))
				}
			}
		})
	}
}

func TestNormalizeArrayPayload(t *testing.T) {
	input := "```json\n[{\"amount\": 500}, {\"amount\": 750}]\n```"
	result := Normalize(input)
	if result == "" {
		t.Fatal("expected array result, got empty string")
	}

	var parsed []map[string]any
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("result is not a valid JSON array: %v\nresult: %s", err, result)
	}
	if len(parsed) != 2 {
		t.Errorf("expected 2 elements, got %d", len(parsed))
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no fences",
			input:    "SELECT * FROM transactions;",
			expected: "SELECT * FROM transactions;",
		},
		{
			name:     "sql fence",
			input:    "```sql\nSELECT * FROM transactions;\n```",
			expected: "SELECT * FROM transactions;",
		},
		{
			name:     "bare fence",
			input:    "```\nSELECT 1;\n```",
			expected: "SELECT 1;",
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```sql\nSELECT 1;\n```\n  ",
			expected: "SELECT 1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.input); got != tt.expected {
				t.Errorf("StripFences(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantErr bool
	}{
		{
			name:    "plain JSON",
			input:   `{"merchant": "Swiggy"}`,
			wantKey: "merchant",
		},
		{
			name:    "markdown code block",
			input:   "```json\n{\"merchant\": \"Swiggy\"}\n```",
			wantKey: "merchant",
		},
		{
			name:    "markdown block with trailing text",
			input:   "```json\n{\"merchant\": \"Swiggy\"}\n```\n\n**Some extra text here**",
			wantKey: "merchant",
		},
		{
			name:    "JS comments and trailing commas",
			input:   "```json\n{\n  \"items\": [\n    \"one\",  // first\n    \"two\",  // second\n  ]\n}\n```",
			wantKey: "items",
		},
		{
			name:    "URL in string not stripped",
			input:   `{"url": "http://example.com/path"}`,
			wantKey: "url",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "This is just text with no JSON.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSON(tt.input)

			if tt.wantErr {
				if result != "" {
					t.Errorf("expected empty result, got: %s", result)
				}
				return
			}

			if result == "" {
				t.Fatal("expected JSON result, got empty string")
			}

			var parsed map[string]any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v\nresult: %s", err, result)
			}

			if _, ok := parsed[tt.wantKey]; !ok {
				t.Errorf("expected key %q in parsed JSON, got keys: %v", tt.wantKey, keysOf(parsed))
			}
		})
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no comment",
			input:    `  "key": "value",`,
			expected: `  "key": "value",`,
		},
		{
			name:     "trailing comment",
			input:    `  "key": "value",  // a comment`,
			expected: `  "key": "value",`,
		},
		{
			name:     "URL in string preserved",
			input:    `  "url": "http://example.com",`,
			expected: `  "url": "http://example.com",`,
		},
		{
			name:     "whole line comment",
			input:    `  // This is a comment`,
			expected: ``,
		},
		{
			name:     "escaped quote in string",
			input:    `  "path": "a\"b//c",  // comment`,
			expected: `  "path": "a\"b//c",`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripLineComment(tt.input)
			if got != tt.expected {
				t.Errorf("stripLineComment(%q)\ngot:  %q\nwant: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
