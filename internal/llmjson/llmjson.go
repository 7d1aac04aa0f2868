// Package llmjson extracts and decodes JSON objects from raw LLM output.
//
// Model responses are treated as untrusted text: they arrive wrapped in
// markdown fences, prefixed with prose, or with raw control characters inside
// string literals. The package recovers a decodable object in up to three
// stages (local extraction, a char-level string repair pass, and one
// optional format-only model call) and reports exactly how much recovery was
// needed so callers can surface parse metrics.
//
// The contract on total failure is fail loudly: callers receive a
// [*ParseFailure] carrying the raw text and must never substitute default
// values for the object they failed to decode.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject is returned by Extract when the text contains no brace-delimited
// object at all.
var ErrNoObject = errors.New("llmjson: no JSON object found in model output")

// Metrics reports how much recovery a successful decode needed.
type Metrics struct {
	// ParseFailCount is the number of parse attempts that failed before one
	// succeeded: 0 when the local pass decoded the original text, 1 when the
	// model repair pass was needed.
	ParseFailCount int `json:"parseFailCount"`

	// RepairUsed reports whether the format-only model call ran.
	RepairUsed bool `json:"repairUsed"`
}

// ParseFailure is the typed error for a decode that failed every stage. It
// retains the raw model text for diagnostics.
type ParseFailure struct {
	// Raw is the original model output, unmodified.
	Raw string

	// FailCount is 1 when only the local pass ran, 2 when the model repair
	// pass was attempted and its output still failed to decode.
	FailCount int

	// RepairUsed reports whether the format-only model call ran.
	RepairUsed bool

	// Err is the decode error from the last attempt.
	Err error
}

func (p *ParseFailure) Error() string {
	return fmt.Sprintf("llmjson: undecodable model output after %d failed attempt(s) (repair used: %t): %v",
		p.FailCount, p.RepairUsed, p.Err)
}

func (p *ParseFailure) Unwrap() error {
	return p.Err
}

// Extract slices the first JSON object out of raw model text. It strips
// optional markdown code fences, then returns the substring from the first
// '{' to the last '}' inclusive, which defends against prose before or after
// the object.
func Extract(raw string) (string, error) {
	s := stripFences(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return "", ErrNoObject
	}
	return s[start : end+1], nil
}

// stripFences removes markdown code-fence markers (```json ... ```) that
// models commonly wrap JSON output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

// RepairStrings escapes raw newline, carriage-return, and tab characters
// found inside JSON string literals. It walks the text char by char tracking
// quote and escape state, so control characters in structural positions
// (between values) are left alone.
func RepairStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			b.WriteByte(c)
			escaped = true
		case c == '"':
			b.WriteByte(c)
			inString = !inString
		case inString && c == '\n':
			b.WriteString(`\n`)
		case inString && c == '\r':
			b.WriteString(`\r`)
		case inString && c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Decode extracts the object from raw and unmarshals it into v, applying the
// string repair pass if the direct parse fails. It returns the decode error
// of the repaired attempt when both fail.
func Decode(raw string, v any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err == nil {
		return nil
	}
	repaired := RepairStrings(obj)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("llmjson: decode: %w", err)
	}
	return nil
}
