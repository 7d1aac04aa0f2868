package llmjson_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rostrum-ai/rostrum/internal/llmjson"
	"github.com/rostrum-ai/rostrum/pkg/provider/llm"
	"github.com/rostrum-ai/rostrum/pkg/provider/llm/mock"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			raw:  `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "json fence",
			raw:  "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "plain fence",
			raw:  "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "prose wrapping",
			raw:  "Here is the result:\n```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "trailing commentary",
			raw:  `{"a":1} I hope this helps!`,
			want: `{"a":1}`,
		},
		{
			name: "nested objects span to last brace",
			raw:  `noise {"a":{"b":2}} tail`,
			want: `{"a":{"b":2}}`,
		},
		{
			name:    "no object",
			raw:     "I could not produce a score.",
			wantErr: true,
		},
		{
			name:    "reversed braces",
			raw:     "} nothing here {",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := llmjson.Extract(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, llmjson.ErrNoObject) {
					t.Fatalf("Extract() error = %v, want ErrNoObject", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepairStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "newline inside literal",
			in:   "{\"a\":\"line one\nline two\"}",
			want: `{"a":"line one\nline two"}`,
		},
		{
			name: "tab inside literal",
			in:   "{\"a\":\"col1\tcol2\"}",
			want: `{"a":"col1\tcol2"}`,
		},
		{
			name: "structural newlines untouched",
			in:   "{\n\"a\": 1\n}",
			want: "{\n\"a\": 1\n}",
		},
		{
			name: "already escaped sequences untouched",
			in:   `{"a":"one\ntwo"}`,
			want: `{"a":"one\ntwo"}`,
		},
		{
			name: "escaped quote does not end string",
			in:   "{\"a\":\"say \\\"hi\\\"\nbye\"}",
			want: `{"a":"say \"hi\"\nbye"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := llmjson.RepairStrings(tt.in); got != tt.want {
				t.Errorf("RepairStrings() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeRepairsLiteralNewline(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"feedback\":\"strong opening\nweak close\"}\n```"
	var v struct {
		Feedback string `json:"feedback"`
	}
	if err := llmjson.Decode(raw, &v); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Feedback != "strong opening\nweak close" {
		t.Errorf("Feedback = %q, want repaired newline preserved", v.Feedback)
	}
}

func TestRecovererLocalSuccess(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	r := llmjson.NewRecoverer(p, "{}")

	var v struct {
		A int `json:"a"`
	}
	m, err := r.Decode(context.Background(), `{"a": 7}`, &v)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.ParseFailCount != 0 || m.RepairUsed {
		t.Errorf("Metrics = %+v, want zero-recovery metrics", m)
	}
	if v.A != 7 {
		t.Errorf("decoded A = %d, want 7", v.A)
	}
	if got := len(p.CompleteCalls); got != 0 {
		t.Errorf("repair provider called %d times, want 0", got)
	}
}

func TestRecovererModelRepairSuccess(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"a": 7}`},
	}
	r := llmjson.NewRecoverer(p, `{"a": <number>}`)

	var v struct {
		A int `json:"a"`
	}
	m, err := r.Decode(context.Background(), `{"a": 7,,}`, &v)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.ParseFailCount != 1 || !m.RepairUsed {
		t.Errorf("Metrics = %+v, want {ParseFailCount:1 RepairUsed:true}", m)
	}
	if v.A != 7 {
		t.Errorf("decoded A = %d, want 7", v.A)
	}

	if got := len(p.CompleteCalls); got != 1 {
		t.Fatalf("repair provider called %d times, want 1", got)
	}
	call := p.CompleteCalls[0]
	if call.Req.Temperature != 0 {
		t.Errorf("repair Temperature = %v, want 0", call.Req.Temperature)
	}
	if call.Req.SystemPrompt == "" {
		t.Error("repair call missing system prompt")
	}
}

func TestRecovererRepairStillFailing(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "sorry, I cannot fix that"},
	}
	r := llmjson.NewRecoverer(p, "{}")

	raw := `{"a": broken`
	var v struct{}
	_, err := r.Decode(context.Background(), raw, &v)

	var pf *llmjson.ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("Decode() error = %v, want *ParseFailure", err)
	}
	if pf.FailCount != 2 || !pf.RepairUsed {
		t.Errorf("ParseFailure = {FailCount:%d RepairUsed:%t}, want {2 true}", pf.FailCount, pf.RepairUsed)
	}
	if pf.Raw != raw {
		t.Errorf("ParseFailure.Raw = %q, want original text", pf.Raw)
	}
}

func TestRecovererNoProvider(t *testing.T) {
	t.Parallel()

	r := llmjson.NewRecoverer(nil, "")

	var v struct{}
	_, err := r.Decode(context.Background(), "not json at all", &v)

	var pf *llmjson.ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("Decode() error = %v, want *ParseFailure", err)
	}
	if pf.FailCount != 1 || pf.RepairUsed {
		t.Errorf("ParseFailure = {FailCount:%d RepairUsed:%t}, want {1 false}", pf.FailCount, pf.RepairUsed)
	}
}

func TestRecovererRepairCallError(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: errors.New("rate limited")}
	r := llmjson.NewRecoverer(p, "{}")

	var v struct{}
	_, err := r.Decode(context.Background(), "{broken", &v)

	var pf *llmjson.ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("Decode() error = %v, want *ParseFailure", err)
	}
	if pf.FailCount != 2 || !pf.RepairUsed {
		t.Errorf("ParseFailure = {FailCount:%d RepairUsed:%t}, want {2 true}", pf.FailCount, pf.RepairUsed)
	}
}
