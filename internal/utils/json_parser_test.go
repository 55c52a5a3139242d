package utils

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stellaephile/whats-up-doc/internal/model"
)

func TestParseAIJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name:  "Pure JSON",
			input: `{"isEmergency": false, "bodySystem": "ENT"}`,
			want: map[string]interface{}{
				"isEmergency": false,
				"bodySystem":  "ENT",
			},
		},
		{
			name: "JSON in markdown code block",
			input: "```json\n" +
				`{"severity": 3, "severityLevel": "mild"}` + "\n```",
			want: map[string]interface{}{
				"severity":      float64(3),
				"severityLevel": "mild",
			},
		},
		{
			name:  "JSON with surrounding text",
			input: `Here is the assessment: {"severity": 4, "specialties": ["Dental"]} Hope this helps.`,
			want: map[string]interface{}{
				"severity":    float64(4),
				"specialties": []interface{}{"Dental"},
			},
		},
		{
			name:  "Multiline JSON after prose",
			input: "Sure.\n{\n  \"isEmergency\": true,\n  \"redFlags\": [\"chest pain\"]\n}\n",
			want: map[string]interface{}{
				"isEmergency": true,
				"redFlags":    []interface{}{"chest pain"},
			},
		},
		{
			name:  "JSON with trailing comma",
			input: `{"severity": 5, "reasoning": "ok",}`,
			want: map[string]interface{}{
				"severity":  float64(5),
				"reasoning": "ok",
			},
		},
		{
			name:  "JSON with unquoted keys",
			input: `{severity: 2, severityLevel: "mild"}`,
			want: map[string]interface{}{
				"severity":      float64(2),
				"severityLevel": "mild",
			},
		},
		{
			name:  "JSON with single quotes",
			input: `{'bodySystem': 'Neurology'}`,
			want: map[string]interface{}{
				"bodySystem": "Neurology",
			},
		},
		{
			name:  "Prose braces before the object",
			input: `Use {braces} carefully. {"severity": 7}`,
			want: map[string]interface{}{
				"severity": float64(7),
			},
		},
		{
			name:    "Empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "Invalid JSON",
			input:   "not json at all",
			wantErr: true,
		},
		{
			name:    "Array is not an object",
			input:   `["Dental", "ENT"]`,
			wantErr: true,
		},
		{
			name:    "Unterminated object",
			input:   `{"severity": 3, "reasoning": "cut off`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]interface{}
			err := ParseAIJSON(tt.input, &got)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAIJSON() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				if !errors.Is(err, model.ErrMalformedModelOutput) {
					t.Errorf("ParseAIJSON() error = %v, want ErrMalformedModelOutput", err)
				}
				return
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAIJSON() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAIJSON_FencedRoundTrip(t *testing.T) {
	objects := []string{
		`{"a": 1}`,
		`{"nested": {"b": [1, 2, {"c": "}"}]}, "s": "x"}`,
		`{"clarifyingQuestions": ["Kitne din se bukhar hai?", "Umar kya hai?"]}`,
		`{}`,
	}
	prefixes := []string{"", "Here you go:\n", "Result {not json} below\n", "```\nignored\n```\n"}
	suffixes := []string{"", "\nLet me know if you need more.", "\n} stray brace", "\n{\"other\": 2}"}

	for _, obj := range objects {
		var want map[string]interface{}
		if err := json.Unmarshal([]byte(obj), &want); err != nil {
			t.Fatalf("bad fixture %s: %v", obj, err)
		}

		for _, prefix := range prefixes {
			for _, suffix := range suffixes {
				input := prefix + "```json\n" + obj + "\n```" + suffix

				var got map[string]interface{}
				if err := ParseAIJSON(input, &got); err != nil {
					t.Errorf("ParseAIJSON(%q) error = %v", input, err)
					continue
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("ParseAIJSON(%q) = %v, want %v", input, got, want)
				}
			}
		}
	}
}

func TestParseAIJSON_ErrorCarriesSample(t *testing.T) {
	input := strings.Repeat("x", 500)
	err := ParseAIJSON(input, &map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > sampleLen+100 {
		t.Errorf("error message not truncated: %d bytes", len(err.Error()))
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short", input: "bukhar", maxLen: 10, want: "bukhar"},
		{name: "ascii cut", input: "chest pain", maxLen: 5, want: "chest..."},
		// each Devanagari letter is 3 bytes
		{name: "cut inside rune", input: "बुखार", maxLen: 4, want: "ब..."},
		{name: "cut on boundary", input: "बुखार", maxLen: 6, want: "बु..."},
		{name: "first rune too long", input: "बुखार", maxLen: 2, want: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateString(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateString(%q, %d) produced invalid UTF-8", tt.input, tt.maxLen)
			}
		})
	}
}

func TestParseAIJSON_TypedTargetResetBetweenCandidates(t *testing.T) {
	type payload struct {
		Severity int `json:"severity"`
	}

	// First object has the wrong type for severity; the second is usable.
	var got payload
	err := ParseAIJSON(`{"severity": "high"} then {"severity": 6}`, &got)
	if err != nil {
		t.Fatalf("ParseAIJSON() error = %v", err)
	}
	if got.Severity != 6 {
		t.Errorf("Severity = %d, want 6", got.Severity)
	}
}

func TestExtractJSONObject(t *testing.T) {
	raw, err := ExtractJSONObject("```json\n{\"ok\": true}\n```")
	if err != nil {
		t.Fatalf("ExtractJSONObject() error = %v", err)
	}
	if string(raw) != `{"ok": true}` {
		t.Errorf("ExtractJSONObject() = %s", raw)
	}
}

func TestExtractBalancedBraces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		open  rune
		close rune
		want  string
	}{
		{
			name:  "Simple object",
			input: `{"a": 1}`,
			open:  '{',
			close: '}',
			want:  `{"a": 1}`,
		},
		{
			name:  "Nested objects",
			input: `{"a": {"b": 2}}`,
			open:  '{',
			close: '}',
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "Object with string containing braces",
			input: `{"text": "Hello {world}"}`,
			open:  '{',
			close: '}',
			want:  `{"text": "Hello {world}"}`,
		},
		{
			name:  "Array",
			input: `[1, 2, 3]`,
			open:  '[',
			close: ']',
			want:  `[1, 2, 3]`,
		},
		{
			name:  "Unbalanced",
			input: `{"a": {"b": 2}`,
			open:  '{',
			close: '}',
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractBalancedBraces(tt.input, tt.open, tt.close)
			if got != tt.want {
				t.Errorf("extractBalancedBraces() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractJSONSnippets(t *testing.T) {
	got := ExtractJSONSnippets(`a {"x": 1} b [2, 3] c {"y": {"z": 4}}`)
	want := []string{`{"x": 1}`, `[2, 3]`, `{"y": {"z": 4}}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractJSONSnippets() = %v, want %v", got, want)
	}
}
