package scenario

import (
	"errors"
	"fmt"
	"strings"
)

// Step is one probe in a group.
type Step struct {
	Label       string  `yaml:"label"`
	Query       string  `yaml:"query"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"` // 0 leaves the cap to the upstream
}

// Group is an ordered run of steps sharing one scenario tag.
type Group struct {
	Scenario string `yaml:"scenario"`
	Heading  string `yaml:"heading"`
	Steps    []Step `yaml:"steps"`
}

// Suite is a titled collection of groups run together.
type Suite struct {
	Name        string  `yaml:"name"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Groups      []Group `yaml:"groups"`
}

// Len returns the number of probes the suite issues.
func (s Suite) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Steps)
	}
	return n
}

// Scenarios lists the distinct scenario tags in declared order.
func (s Suite) Scenarios() []string {
	var out []string
	seen := map[string]bool{}
	for _, g := range s.Groups {
		if !seen[g.Scenario] {
			seen[g.Scenario] = true
			out = append(out, g.Scenario)
		}
	}
	return out
}

// Validate reports every structural problem in the suite.
func (s Suite) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(s.Groups) == 0 {
		errs = append(errs, errors.New("at least one group is required"))
	}
	for gi, g := range s.Groups {
		if strings.TrimSpace(g.Scenario) == "" {
			errs = append(errs, fmt.Errorf("groups[%d]: scenario is required", gi))
		}
		if len(g.Steps) == 0 {
			errs = append(errs, fmt.Errorf("groups[%d]: at least one step is required", gi))
		}
		for si, st := range g.Steps {
			if strings.TrimSpace(st.Query) == "" {
				errs = append(errs, fmt.Errorf("groups[%d].steps[%d]: query is required", gi, si))
			}
			if st.Temperature < 0 || st.Temperature > 2 {
				errs = append(errs, fmt.Errorf("groups[%d].steps[%d]: temperature must be between 0 and 2", gi, si))
			}
			if st.MaxTokens < 0 {
				errs = append(errs, fmt.Errorf("groups[%d].steps[%d]: max_tokens must be >= 0", gi, si))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if s.Name != "" {
		return fmt.Errorf("suite %q: %w", s.Name, errors.Join(errs...))
	}
	return errors.Join(errs...)
}

// Select picks suites by name in the order given by only (all suites when only
// is empty) and drops any named in skip.
func Select(all []Suite, only, skip []string) ([]Suite, error) {
	byName := make(map[string]Suite, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}

	skipped := map[string]bool{}
	for _, name := range skip {
		name = strings.TrimSpace(name)
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("unknown suite %q", name)
		}
		skipped[name] = true
	}

	var picked []Suite
	if len(only) == 0 {
		for _, s := range all {
			if !skipped[s.Name] {
				picked = append(picked, s)
			}
		}
		return picked, nil
	}
	for _, name := range only {
		name = strings.TrimSpace(name)
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown suite %q", name)
		}
		if !skipped[name] {
			picked = append(picked, s)
		}
	}
	return picked, nil
}

// Names returns the suite names in order.
func Names(suites []Suite) []string {
	out := make([]string, len(suites))
	for i, s := range suites {
		out[i] = s.Name
	}
	return out
}
