package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type suiteFile struct {
	Suites []Suite `yaml:"suites"`
}

// LoadFile reads extra suites from a YAML file.
func LoadFile(path string) ([]Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suites file: %w", err)
	}
	suites, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suites, nil
}

// Load decodes suites from YAML of the form
//
//	suites:
//	  - name: billing
//	    groups:
//	      - steps:
//	          - query: How do I get a refund?
//
// A group without a scenario takes the suite name; a step without a label is
// numbered.
func Load(r io.Reader) ([]Suite, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file suiteFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no suites defined")
		}
		return nil, fmt.Errorf("decode suites: %w", err)
	}
	if len(file.Suites) == 0 {
		return nil, errors.New("no suites defined")
	}

	seen := map[string]bool{}
	var errs []error
	for i := range file.Suites {
		s := &file.Suites[i]
		applyDefaults(s)
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate suite %q", s.Name))
		}
		seen[s.Name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return file.Suites, nil
}

func applyDefaults(s *Suite) {
	if s.Title == "" {
		s.Title = s.Name
	}
	for gi := range s.Groups {
		g := &s.Groups[gi]
		if g.Scenario == "" {
			g.Scenario = s.Name
		}
		for si := range g.Steps {
			if g.Steps[si].Label == "" {
				g.Steps[si].Label = fmt.Sprintf("step_%d", si+1)
			}
		}
	}
}
