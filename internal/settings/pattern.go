package settings

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pattern is a compiled include/exclude rule. Patterns match from the start
// of the path relative to the mapping root; a pattern without an explicit
// leading anchor is anchored during compilation.
type Pattern struct {
	*regexp.Regexp
}

// CompilePattern compiles expr into an anchored Pattern.
func CompilePattern(expr string) (Pattern, error) {
	anchored := expr
	if !strings.HasPrefix(expr, "^") {
		anchored = "^(?:" + expr + ")"
	}
	compiled, err := regexp.Compile(anchored)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return Pattern{Regexp: compiled}, nil
}

func mustPattern(expr string) Pattern {
	pattern, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return pattern
}

func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	compiled, err := CompilePattern(expr)
	if err != nil {
		return err
	}
	*p = compiled
	return nil
}

// Regexps unwraps a pattern list for callers that work on *regexp.Regexp.
func Regexps(patterns []Pattern) []*regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}
	expressions := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		expressions = append(expressions, pattern.Regexp)
	}
	return expressions
}
