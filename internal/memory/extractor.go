package memory

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/flemzord/recall/internal/provider"
)

// DefaultMinConfidence is the extraction and storage threshold used when
// none is configured.
const DefaultMinConfidence = 0.5

const (
	minTurnLength   = 10  // trimmed turns shorter than this carry no fact
	maxFactLength   = 200 // extracted text must be shorter than this
	factPunctuation = ".,!?;:"
)

// Candidate outcomes recorded in Metrics.Candidates.
const (
	outcomeAccepted       = "accepted"
	outcomeBelowThreshold = "below_threshold"
	outcomeNoText         = "no_text"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// CandidateFact is a statement that may be worth remembering. It is
// promoted to a MemoryEntry only if ShouldStore accepts it.
type CandidateFact struct {
	Text          string
	Confidence    float64
	SourceMessage string
	Metadata      map[string]any
}

// FactExtractor finds memory-worthy statements in conversation turns.
type FactExtractor interface {
	// Extract returns the candidates found in the user turns.
	Extract(turns []Turn) []CandidateFact

	// ShouldStore reports whether a candidate clears the storage threshold.
	ShouldStore(c CandidateFact) bool
}

// Compile-time interface checks.
var (
	_ FactExtractor = (*PatternExtractor)(nil)
	_ FactExtractor = NopExtractor{}
)

// ExtractorConfig configures a PatternExtractor.
type ExtractorConfig struct {
	// MinConfidence gates both extraction and storage. Zero means DefaultMinConfidence.
	MinConfidence float64

	// Patterns replaces DefaultPatterns when non-empty.
	Patterns []Pattern

	// StrongPhrases replaces DefaultStrongPhrases when non-empty.
	StrongPhrases []string

	Metrics *Metrics
}

// PatternExtractor scores turns against a catalogue of first-person
// declarative patterns. Scoring is purely lexical and deterministic.
type PatternExtractor struct {
	patterns      []compiledPattern
	strong        []string
	minConfidence float64
	metrics       *Metrics
}

// NewPatternExtractor compiles the configured catalogue.
func NewPatternExtractor(cfg ExtractorConfig) (*PatternExtractor, error) {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns
	}
	if len(cfg.StrongPhrases) == 0 {
		cfg.StrongPhrases = DefaultStrongPhrases
	}

	compiled, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	strong := make([]string, len(cfg.StrongPhrases))
	for i, p := range cfg.StrongPhrases {
		strong[i] = strings.ToLower(p)
	}

	return &PatternExtractor{
		patterns:      compiled,
		strong:        strong,
		minConfidence: cfg.MinConfidence,
		metrics:       cfg.Metrics,
	}, nil
}

// MinConfidence returns the configured threshold.
func (x *PatternExtractor) MinConfidence() float64 { return x.minConfidence }

// Extract scans user turns only; assistant text is never mined for user
// facts.
func (x *PatternExtractor) Extract(turns []Turn) []CandidateFact {
	var candidates []CandidateFact

	for _, turn := range turns {
		if turn.Role != provider.MessageRoleUser {
			continue
		}
		text := strings.TrimSpace(turn.Content)
		if utf8.RuneCountInString(text) < minTurnLength {
			continue
		}

		matched := x.matchedPatterns(text)
		confidence := x.score(text, len(matched))
		if confidence == 0 {
			continue
		}
		if confidence < x.minConfidence {
			x.metrics.incCandidates(outcomeBelowThreshold)
			continue
		}

		factText, ok := x.extractText(text)
		if !ok {
			x.metrics.incCandidates(outcomeNoText)
			continue
		}

		x.metrics.incCandidates(outcomeAccepted)
		candidates = append(candidates, CandidateFact{
			Text:          factText,
			Confidence:    confidence,
			SourceMessage: text,
			Metadata: map[string]any{
				"extracted_from":  "conversation",
				"pattern_matched": true,
				"patterns":        matched,
			},
		})
	}

	return candidates
}

// ShouldStore reports whether c.Confidence reaches the threshold.
func (x *PatternExtractor) ShouldStore(c CandidateFact) bool {
	return c.Confidence >= x.minConfidence
}

// Confidence scores text the same way Extract does.
func (x *PatternExtractor) Confidence(text string) float64 {
	text = strings.TrimSpace(text)
	return x.score(text, len(x.matchedPatterns(text)))
}

func (x *PatternExtractor) score(text string, matches int) float64 {
	if matches == 0 {
		return 0
	}

	confidence := min(0.5+0.2*float64(matches), 1.0)

	lower := strings.ToLower(text)
	for _, phrase := range x.strong {
		if strings.Contains(lower, phrase) {
			confidence = min(confidence+0.2, 1.0)
			break
		}
	}

	// Questions are not facts.
	if strings.HasSuffix(text, "?") {
		confidence *= 0.5
	}
	if utf8.RuneCountInString(text) > maxFactLength {
		confidence *= 0.7
	}
	return confidence
}

func (x *PatternExtractor) matchedPatterns(text string) []string {
	var names []string
	for _, p := range x.patterns {
		if p.re.MatchString(text) {
			names = append(names, p.name)
		}
	}
	return names
}

func (x *PatternExtractor) matchesAny(text string) bool {
	for _, p := range x.patterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// extractText picks the first sentence that matches a pattern and fits
// the length band, falling back to the whole text.
func (x *PatternExtractor) extractText(text string) (string, bool) {
	for _, sentence := range sentenceBoundary.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if !x.matchesAny(sentence) {
			continue
		}
		if s := trimFactPunctuation(sentence); fitsFactLength(s) {
			return s, true
		}
	}

	if s := trimFactPunctuation(text); fitsFactLength(s) {
		return s, true
	}
	return "", false
}

func trimFactPunctuation(s string) string {
	return strings.TrimSpace(strings.Trim(s, factPunctuation))
}

func fitsFactLength(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > minTurnLength && n < maxFactLength
}

// NopExtractor never finds anything. It disables long-term memory writes
// while keeping retrieval of existing memories.
type NopExtractor struct{}

// Extract returns nil.
func (NopExtractor) Extract([]Turn) []CandidateFact { return nil }

// ShouldStore returns false.
func (NopExtractor) ShouldStore(CandidateFact) bool { return false }
