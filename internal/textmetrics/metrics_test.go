package textmetrics_test

import (
	"strings"
	"testing"

	"github.com/rostrum-ai/rostrum/internal/textmetrics"
)

func TestWordCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t  ", 0},
		{"simple", "freedom is important", 3},
		{"extra whitespace", "  freedom   is\nimportant  ", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textmetrics.WordCount(tt.text); got != tt.want {
				t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestFillers_SingleTokens(t *testing.T) {
	t.Parallel()

	stats := textmetrics.Fillers("Um, I think, um, that this is, uh, basically fine.")
	if stats.ByExpression["um"] != 2 {
		t.Errorf("um count = %d, want 2", stats.ByExpression["um"])
	}
	if stats.ByExpression["uh"] != 1 {
		t.Errorf("uh count = %d, want 1", stats.ByExpression["uh"])
	}
	if stats.ByExpression["basically"] != 1 {
		t.Errorf("basically count = %d, want 1", stats.ByExpression["basically"])
	}
}

func TestFillers_PhrasesAreContiguous(t *testing.T) {
	t.Parallel()

	// "you ... know" split across other words must not match "you know".
	stats := textmetrics.Fillers("you certainly know the answer")
	if got := stats.ByExpression["you know"]; got != 0 {
		t.Errorf("non-contiguous phrase counted: got %d", got)
	}

	stats = textmetrics.Fillers("and you know it was kind of hard you know")
	if got := stats.ByExpression["you know"]; got != 2 {
		t.Errorf("you know count = %d, want 2", got)
	}
	if got := stats.ByExpression["kind of"]; got != 1 {
		t.Errorf("kind of count = %d, want 1", got)
	}
}

func TestFillers_NoOverlapWithinExpression(t *testing.T) {
	t.Parallel()

	// Four consecutive "kind" tokens give exactly two "kind of" matches in
	// "kind of kind of", not three overlapping ones.
	stats := textmetrics.Fillers("kind of kind of")
	if got := stats.ByExpression["kind of"]; got != 2 {
		t.Errorf("kind of count = %d, want 2", got)
	}
}

func TestFillers_CaseInsensitive(t *testing.T) {
	t.Parallel()

	stats := textmetrics.Fillers("UM basically LIKE")
	if stats.Total < 3 {
		t.Errorf("Total = %d, want at least 3", stats.Total)
	}
}

func TestLexicalDiversity(t *testing.T) {
	t.Parallel()

	if got := textmetrics.LexicalDiversity(""); got != 0 {
		t.Errorf("empty text diversity = %f, want 0", got)
	}
	if got := textmetrics.LexicalDiversity("one two three four"); got != 1.0 {
		t.Errorf("all-unique diversity = %f, want 1.0", got)
	}
	// 8 tokens, 1 unique.
	got := textmetrics.LexicalDiversity("word word word word word word word word")
	if got != 0.125 {
		t.Errorf("repeated-word diversity = %f, want 0.125", got)
	}
}

func TestNGramRepetition(t *testing.T) {
	t.Parallel()

	// Highly varied text: no n-gram repeats three times.
	varied := "the quick brown fox jumps over the lazy dog near a quiet river bank today"
	if got := textmetrics.NGramRepetition(varied); got != 0 {
		t.Errorf("varied text repetition = %f, want 0", got)
	}

	// A phrase repeated many times drives the ratio up.
	loop := strings.Repeat("and then I went ", 10)
	if got := textmetrics.NGramRepetition(loop); got <= 0.3 {
		t.Errorf("looped text repetition = %f, want > 0.3", got)
	}

	if got := textmetrics.NGramRepetition("too short"); got != 0 {
		t.Errorf("short text repetition = %f, want 0", got)
	}
}

func TestComputeIntegrity_SizeFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		suspicious bool
	}{
		{"empty", "", false},
		{"few words", "just a handful of words here", true},
		{"plausible", strings.Repeat("a perfectly ordinary sentence with several words ", 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := textmetrics.ComputeIntegrity(tt.text, nil)
			if in.Suspicious != tt.suspicious {
				t.Errorf("Suspicious = %v, want %v", in.Suspicious, tt.suspicious)
			}
			if in.WordCount != textmetrics.WordCount(tt.text) {
				t.Errorf("WordCount = %d, want %d", in.WordCount, textmetrics.WordCount(tt.text))
			}
			if len(in.SHA256) != 64 {
				t.Errorf("SHA256 length = %d, want 64", len(in.SHA256))
			}
		})
	}
}

func TestComputeIntegrity_RepeatedHashFlags(t *testing.T) {
	t.Parallel()

	counter := textmetrics.NewSightingCounter()
	text := strings.Repeat("the same transcript submitted again and again ", 10)

	first := textmetrics.ComputeIntegrity(text, counter)
	if first.Suspicious {
		t.Error("first sighting flagged suspicious")
	}
	second := textmetrics.ComputeIntegrity(text, counter)
	if second.Suspicious {
		t.Error("second sighting flagged suspicious")
	}
	third := textmetrics.ComputeIntegrity(text, counter)
	if !third.Suspicious {
		t.Error("third sighting not flagged suspicious")
	}
	if counter.Len() != 1 {
		t.Errorf("counter.Len() = %d, want 1", counter.Len())
	}
}
