// Package problems is the built-in practice problem catalog.
package problems

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/sakif/coderunner/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Load returns the built-in catalog in file order.
func Load() ([]model.Problem, error) {
	return Parse(catalogYAML)
}

// Parse decodes and validates a catalog document. Unknown fields are rejected
// so a typo in a key does not silently drop data.
func Parse(data []byte) ([]model.Problem, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var list []model.Problem
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("problems: decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(list))
	for i := range list {
		p := &list[i]
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("problems: entry %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("problems: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return list, nil
}

// Validate checks the fields every problem needs to be judged.
func Validate(p *model.Problem) error {
	switch {
	case !slugPattern.MatchString(p.ID):
		return fmt.Errorf("id %q is not a lowercase slug", p.ID)
	case p.Title == "":
		return fmt.Errorf("%s: title is required", p.ID)
	case !p.Difficulty.Valid():
		return fmt.Errorf("%s: unknown difficulty %q", p.ID, p.Difficulty)
	case len(p.TestCases) == 0:
		return fmt.Errorf("%s: at least one test case is required", p.ID)
	}
	return nil
}

// IsSlug reports whether id has the shape of a problem id.
func IsSlug(id string) bool {
	return slugPattern.MatchString(id)
}
