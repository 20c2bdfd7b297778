package matcher

import (
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/internal/rules"
)

// File is a single source file presented to the matcher.
type File struct {
	Path    string
	Content string
}

// Match is one detection of a rule in a file. At most one Match is produced
// per (file, rule) pair even when the pattern occurs several times.
type Match struct {
	Rule     rules.Rule
	FilePath string
	// Line is the 1-indexed first line whose content matches the rule's
	// pattern, or 0 when no single line matches on its own.
	Line    int
	Snippet string
}

// Evaluate runs every applicable rule against every file, in the order both
// were given. The output is deterministic for a fixed rule set and file set.
// A rule whose pattern fails to compile is skipped and logged; it never
// aborts the evaluation.
func Evaluate(logger hclog.Logger, ruleSet []rules.Rule, files []File) []Match {
	compiled := compileRules(logger, ruleSet)

	var matches []Match
	for _, file := range files {
		for _, cr := range compiled {
			if !cr.rule.AppliesTo(file.Path) {
				continue
			}
			if !cr.re.MatchString(file.Content) {
				continue
			}

			line, snippet := locate(cr, file.Content)
			matches = append(matches, Match{
				Rule:     cr.rule,
				FilePath: file.Path,
				Line:     line,
				Snippet:  snippet,
			})
		}
	}
	return matches
}

type compiledRule struct {
	rule rules.Rule
	re   patternMatcher
}

type patternMatcher interface {
	MatchString(s string) bool
	FindString(s string) string
}

func compileRules(logger hclog.Logger, ruleSet []rules.Rule) []compiledRule {
	compiled := make([]compiledRule, 0, len(ruleSet))
	for _, rule := range ruleSet {
		re, err := rule.Compile()
		if err != nil {
			logger.Warn("skipping rule with uncompilable pattern", "rule", rule.ID, "error", err)
			continue
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return compiled
}

// locate finds the first line matching the pattern on its own. When the
// pattern only matches across line boundaries the snippet falls back to the
// full matched substring and the line stays unset.
func locate(cr compiledRule, content string) (line int, snippet string) {
	lines := strings.Split(content, "\n")
	for i, text := range lines {
		if cr.re.MatchString(text) {
			return i + 1, strings.TrimSpace(text)
		}
	}
	return 0, cr.re.FindString(content)
}
