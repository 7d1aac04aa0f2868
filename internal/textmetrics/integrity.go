package textmetrics

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

const (
	// suspiciousSightings is the number of times an identical transcript may
	// be seen before further submissions are flagged.
	suspiciousSightings = 3

	// minPlausibleWords and minPlausibleChars are the floors below which a
	// non-empty transcript is too small to be genuine speech.
	minPlausibleWords = 25
	minPlausibleChars = 50
)

// Integrity holds the derived integrity metadata for one transcript. It is
// computed once per analysis and never mutated afterwards.
type Integrity struct {
	WordCount  int    `json:"wordCount"`
	CharLength int    `json:"charLength"`
	SHA256     string `json:"sha256"`

	// Suspicious is a soft anti-cheating signal: set when the same transcript
	// hash keeps reappearing across sessions or when the transcript is
	// implausibly small for genuine speech. It never blocks an analysis on
	// its own.
	Suspicious bool `json:"suspicious"`
}

// SightingCounter counts how often each transcript hash has been seen during
// the lifetime of the process. It is an intentional in-memory heuristic, not
// durable state: the counts reset on restart and that is acceptable for a
// soft signal.
//
// Safe for concurrent use.
type SightingCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewSightingCounter returns an empty counter.
func NewSightingCounter() *SightingCounter {
	return &SightingCounter{counts: make(map[string]int)}
}

// Record increments the sighting count for hash and returns the new count.
func (c *SightingCounter) Record(hash string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[hash]++
	return c.counts[hash]
}

// Len returns the number of distinct hashes recorded so far.
func (c *SightingCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// ComputeIntegrity hashes text, records the sighting in counter, and returns
// the full [Integrity] record. counter may be nil, in which case only the
// size-based suspicion checks apply.
func ComputeIntegrity(text string, counter *SightingCounter) Integrity {
	sum := sha256.Sum256([]byte(text))
	in := Integrity{
		WordCount:  WordCount(text),
		CharLength: len(text),
		SHA256:     hex.EncodeToString(sum[:]),
	}

	sightings := 1
	if counter != nil {
		sightings = counter.Record(in.SHA256)
	}

	switch {
	case sightings >= suspiciousSightings:
		in.Suspicious = true
	case in.WordCount > 0 && in.WordCount < minPlausibleWords:
		in.Suspicious = true
	case in.CharLength > 0 && in.CharLength < minPlausibleChars:
		in.Suspicious = true
	}
	return in
}
