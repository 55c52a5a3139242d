package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Model output is loosely typed: numbers arrive as strings, booleans as
// "yes", lists as a single string. These types accept the common variants
// so one sloppy field does not sink an otherwise usable reply.

var jsonNull = []byte("null")

// FlexBool accepts true/false, "true"/"yes"/"1" style strings and 0/1.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*b = false
		return nil
	}

	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = n != 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot read %s as bool", truncateString(string(data), 40))
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		*b = true
	case "false", "no", "n", "0", "":
		*b = false
	default:
		return fmt.Errorf("cannot read %q as bool", s)
	}
	return nil
}

// FlexInt accepts integers, floats (rounded) and numeric strings such as
// "7" or "7/10". Set is false when the field was absent or null.
type FlexInt struct {
	Value int
	Set   bool
}

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*i = FlexInt{}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*i = FlexInt{Value: int(math.Round(n)), Set: true}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot read %s as number", truncateString(string(data), 40))
	}

	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, "/ "); idx > 0 {
		s = s[:idx]
	}
	if s == "" {
		*i = FlexInt{}
		return nil
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("cannot read %q as number", s)
	}
	*i = FlexInt{Value: int(math.Round(n)), Set: true}
	return nil
}

// FlexString accepts a string, a number or a bool and keeps its text form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*s = ""
		return nil
	}

	var v string
	if err := json.Unmarshal(data, &v); err == nil {
		*s = FlexString(v)
		return nil
	}

	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return fmt.Errorf("cannot read %s as string", truncateString(string(data), 40))
	}
	*s = FlexString(data)
	return nil
}

// FlexStrings accepts a list of strings, a single string, or null. Scalar
// list elements are kept in their text form and blank entries are dropped.
type FlexStrings []string

func (l *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*l = nil
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = nil
		if one = strings.TrimSpace(one); one != "" {
			*l = FlexStrings{one}
		}
		return nil
	}

	var items []FlexString
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("cannot read %s as list: %w", truncateString(string(data), 40), err)
	}

	out := make(FlexStrings, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(string(item)); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

// Strings returns the list as a non-nil slice.
func (l FlexStrings) Strings() []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

// DedupeStrings drops blank and case-insensitive duplicate entries while
// keeping first-seen order. The result is never nil.
func DedupeStrings(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
