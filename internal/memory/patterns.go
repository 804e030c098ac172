package memory

import (
	"fmt"
	"regexp"
)

// Pattern is one entry of the extractor's catalogue of first-person
// declarative statements. Expr is matched case-insensitively anywhere in
// the text.
type Pattern struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// DefaultPatterns is the built-in catalogue.
var DefaultPatterns = []Pattern{
	{Name: "preference", Expr: `i (like|love|prefer|enjoy|hate|dislike)`},
	{Name: "identity", Expr: `i (am|was|will be)`},
	{Name: "favorite", Expr: `my (favorite|preferred|favourite)`},
	{Name: "desire", Expr: `i (want|need|wish|hope)`},
	{Name: "affiliation", Expr: `i (work|study|live) (at|in|for)`},
	{Name: "attribute", Expr: `my (name|age|birthday|email|phone)`},
	{Name: "possession", Expr: `i (have|own|don't have)`},
	{Name: "capability", Expr: `i (can't|cannot|can) (do|eat|drink)`},
	{Name: "restriction", Expr: `i'm (allergic|intolerant) (to|of)`},
	{Name: "goal", Expr: `my (goal|objective|plan) (is|to)`},
}

// DefaultStrongPhrases raise confidence when present in lowercased text.
var DefaultStrongPhrases = []string{"i am", "i like", "i prefer", "my favorite"}

type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// ValidatePatterns reports the first catalogue entry that fails to compile.
func ValidatePatterns(patterns []Pattern) error {
	_, err := compilePatterns(patterns)
	return err
}

func compilePatterns(patterns []Pattern) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return nil, fmt.Errorf("memory: pattern %d (%s): %w", i, p.Name, err)
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("pattern_%d", i)
		}
		compiled = append(compiled, compiledPattern{name: name, re: re})
	}
	return compiled, nil
}
