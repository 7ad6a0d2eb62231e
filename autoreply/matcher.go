package autoreply

import (
	"fmt"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Matcher finds the highest priority rule whose keywords occur in a message.
// All keywords of all rules are searched in a single pass.
type Matcher struct {
	machine *goahocorasick.Machine
	rules   []Rule
	ruleOf  map[string]int // keyword -> index of the first rule declaring it
}

func NewMatcher(rules []Rule) (*Matcher, error) {
	ruleOf := make(map[string]int)
	var patterns [][]rune
	for i, rule := range rules {
		for _, keyword := range rule.Keywords {
			keyword = strings.ToLower(keyword)
			if keyword == "" {
				continue
			}
			if _, seen := ruleOf[keyword]; seen {
				continue
			}
			ruleOf[keyword] = i
			patterns = append(patterns, []rune(keyword))
		}
	}

	matcher := &Matcher{rules: rules, ruleOf: ruleOf}
	if len(patterns) == 0 {
		return matcher, nil
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, fmt.Errorf("build keyword automaton: %w", err)
	}
	matcher.machine = machine
	return matcher, nil
}

// Match returns the first rule, in table order, with a keyword found in content.
func (m *Matcher) Match(content string) (Rule, bool) {
	if m.machine == nil || content == "" {
		return Rule{}, false
	}
	best := -1
	for _, term := range m.machine.MultiPatternSearch([]rune(strings.ToLower(content)), false) {
		i, ok := m.ruleOf[string(term.Word)]
		if ok && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return Rule{}, false
	}
	return m.rules[best], true
}
